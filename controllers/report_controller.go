package controllers

import (
	"fmt"
	"time"

	"bominventory-backend/services"

	"github.com/gofiber/fiber/v2"
)

// ReportController контроллер дашборда и отчетов
type ReportController struct {
	reports *services.ReportService
	export  *services.ExportService
}

// NewReportController создает новый экземпляр ReportController
func NewReportController(reports *services.ReportService, export *services.ExportService) *ReportController {
	return &ReportController{reports: reports, export: export}
}

// Dashboard сводные показатели склада
func (rc *ReportController) Dashboard(c *fiber.Ctx) error {
	metrics, err := rc.reports.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Dashboard retrieved successfully", "data": metrics})
}

// InventoryReport отчет о складе за 30 дней
func (rc *ReportController) InventoryReport(c *fiber.Ctx) error {
	report, err := rc.reports.InventoryReport(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Inventory report generated", "data": report})
}

// TrainCalculator нехватка деталей для заданного числа составов
func (rc *ReportController) TrainCalculator(c *fiber.Ctx) error {
	result, err := rc.reports.TrainCalculator(c.UserContext(), c.Query("part_number"), int64(c.QueryInt("num_trains", 1)))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Calculation complete", "data": result})
}

// ExportInventory выгружает отчет о складе в xlsx
func (rc *ReportController) ExportInventory(c *fiber.Ctx) error {
	f, err := rc.export.InventoryWorkbook(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return respondError(c, err)
	}

	filename := fmt.Sprintf("inventory_report_%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
