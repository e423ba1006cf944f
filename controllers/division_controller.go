package controllers

import (
	"strings"

	"bominventory-backend/services"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// DivisionController контроллер площадок, отправки комплектов и завершения составов
type DivisionController struct {
	divisions *services.DivisionService
	engine    *services.ReconciliationService
}

// NewDivisionController создает новый экземпляр DivisionController
func NewDivisionController(divisions *services.DivisionService, engine *services.ReconciliationService) *DivisionController {
	return &DivisionController{divisions: divisions, engine: engine}
}

// ListDivisions возвращает все площадки
func (dc *DivisionController) ListDivisions(c *fiber.Ctx) error {
	divisions, err := dc.divisions.ListDivisions(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Divisions retrieved successfully", "divisions": divisions})
}

// GetDivision возвращает площадку с учетом по деталям
func (dc *DivisionController) GetDivision(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	detail, err := dc.divisions.GetDivision(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Division retrieved successfully",
		"division":    detail.Division,
		"ledger":      detail.Ledger,
		"shipments":   detail.Shipments,
		"completions": detail.Completions,
	})
}

// CreateDivision создает площадку
func (dc *DivisionController) CreateDivision(c *fiber.Ctx) error {
	var input services.DivisionInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	division, err := dc.divisions.CreateDivision(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Division created", "division": division})
}

// UpdateDivision изменяет имя, место и заметки площадки
func (dc *DivisionController) UpdateDivision(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	var input services.DivisionInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	division, err := dc.divisions.UpdateDivision(c.UserContext(), id, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Division updated", "division": division})
}

// DeleteDivision удаляет площадку
func (dc *DivisionController) DeleteDivision(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := dc.divisions.DeleteDivision(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Division deleted"})
}

// ShipKits отправляет комплекты на площадку
func (dc *DivisionController) ShipKits(c *fiber.Ctx) error {
	var input services.ShipKitsInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.UserName = actorName(c, input.UserName)

	result, err := dc.engine.ShipKits(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"message":     "Kits shipped",
		"shipment":    result.Shipment,
		"division":    result.Division,
		"parts_moved": result.PartsMoved,
		"units_moved": result.UnitsMoved,
	})
}

// CompleteTrains фиксирует завершенные на площадке составы
func (dc *DivisionController) CompleteTrains(c *fiber.Ctx) error {
	var input services.CompleteTrainsInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.UserName = actorName(c, input.UserName)

	result, err := dc.engine.CompleteTrains(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    "Trains completed",
		"completion": result.Completion,
		"division":   result.Division,
		"parts_used": result.PartsUsed,
		"units_used": result.UnitsUsed,
	})
}

func actorName(c *fiber.Ctx, given string) string {
	if strings.TrimSpace(given) != "" {
		return given
	}
	if auth, ok := utils.GetAuthContext(c); ok {
		return auth.Name
	}
	return ""
}
