package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupReportRoutes настраивает маршруты дашборда и отчетов
func SetupReportRoutes(app *fiber.App, reportController *controllers.ReportController) {
	api := app.Group("/api/reports", utils.AuthMiddleware)

	// Сводка для главного экрана
	api.Get("/dashboard", reportController.Dashboard)

	// Отчет о складе и его выгрузка в Excel
	api.Get("/inventory", reportController.InventoryReport)
	api.Get("/inventory/export", reportController.ExportInventory)

	// Калькулятор составов: ?num_trains=N&part_number=X
	api.Get("/train-calculator", reportController.TrainCalculator)
}
