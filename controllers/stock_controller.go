package controllers

import (
	"strings"

	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// StockController контроллер поступлений и корректировок остатка
type StockController struct {
	engine  *services.ReconciliationService
	reports *services.ReportService
}

// NewStockController создает новый экземпляр StockController
func NewStockController(engine *services.ReconciliationService, reports *services.ReportService) *StockController {
	return &StockController{engine: engine, reports: reports}
}

// DeliveryRequest тело запроса поступления; даты в формате YYYY-MM-DD
type DeliveryRequest struct {
	PartNumber       string          `json:"part_number"`
	PartName         string          `json:"part_name"`
	Supplier         string          `json:"supplier"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	DateReceived     string          `json:"date_received"`
	DateExpected     string          `json:"date_expected"`
	Notes            string          `json:"notes"`
}

// RecordDelivery записывает поступление материала
func (sc *StockController) RecordDelivery(c *fiber.Ctx) error {
	var req DeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	received, err := parseDate(req.DateReceived)
	if err != nil {
		return respondError(c, err)
	}
	input := services.DeliveryInput{
		PartNumber:       req.PartNumber,
		PartName:         req.PartName,
		Supplier:         req.Supplier,
		QuantityReceived: req.QuantityReceived,
		DateReceived:     received,
		Notes:            req.Notes,
	}
	if strings.TrimSpace(req.DateExpected) != "" {
		expected, err := parseDate(req.DateExpected)
		if err != nil {
			return respondError(c, err)
		}
		input.DateExpected = &expected
	}

	result, err := sc.engine.RecordDelivery(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}

	message := "Delivery recorded and stock updated"
	if result.Part == nil {
		message = "Delivery recorded; part is not in the catalog, stock unchanged"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":  true,
		"message":  message,
		"delivery": result.Delivery,
		"part":     result.Part,
	})
}

// ListDeliveries журнал поступлений постранично
func (sc *StockController) ListDeliveries(c *fiber.Ctx) error {
	page, err := sc.reports.ListDeliveries(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Deliveries retrieved successfully", "data": page})
}

// UpcomingDeliveries поставки, ожидаемые с сегодняшнего дня
func (sc *StockController) UpcomingDeliveries(c *fiber.Ctx) error {
	deliveries, err := sc.reports.UpcomingDeliveries(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Upcoming deliveries retrieved", "deliveries": deliveries})
}

// ApplyAdjustment применяет ручную корректировку; автор по умолчанию берется из токена
func (sc *StockController) ApplyAdjustment(c *fiber.Ctx) error {
	var input services.AdjustmentInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.UserName = actorName(c, input.UserName)

	result, err := sc.engine.ApplyStockAdjustment(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":    true,
		"message":    "Stock adjusted",
		"adjustment": result.Adjustment,
		"part":       result.Part,
	})
}

// ListAdjustments журнал корректировок постранично
func (sc *StockController) ListAdjustments(c *fiber.Ctx) error {
	page, err := sc.reports.ListAdjustments(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Adjustments retrieved successfully", "data": page})
}
