package controllers

import (
	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// DefectController контроллер журнала дефектов
type DefectController struct {
	defects *services.DefectService
}

// NewDefectController создает новый экземпляр DefectController
func NewDefectController(defects *services.DefectService) *DefectController {
	return &DefectController{defects: defects}
}

// DefectRequest тело запроса дефекта
type DefectRequest struct {
	PartNumber   string          `json:"part_number"`
	Quantity     decimal.Decimal `json:"quantity"`
	DivisionID   *uint           `json:"division_id"`
	DateReported string          `json:"date_reported"`
	Notes        string          `json:"notes"`
}

// CreateDefect записывает дефект
func (dc *DefectController) CreateDefect(c *fiber.Ctx) error {
	var req DefectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	reported, err := parseDate(req.DateReported)
	if err != nil {
		return respondError(c, err)
	}

	defect, err := dc.defects.CreateDefect(c.UserContext(), services.DefectInput{
		PartNumber:   req.PartNumber,
		Quantity:     req.Quantity,
		DivisionID:   req.DivisionID,
		DateReported: reported,
		Notes:        req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Defect recorded", "defect": defect})
}

// ListDefects возвращает дефекты; division_id ограничивает одной площадкой
func (dc *DefectController) ListDefects(c *fiber.Ctx) error {
	var divisionID *uint
	if raw := c.QueryInt("division_id", 0); raw > 0 {
		id := uint(raw)
		divisionID = &id
	}

	defects, err := dc.defects.ListDefects(c.UserContext(), divisionID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Defects retrieved successfully", "defects": defects})
}
