package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupStockRoutes настраивает маршруты поступлений и корректировок
func SetupStockRoutes(app *fiber.App, stockController *controllers.StockController) {
	admin := utils.RequireRole(models.RoleAdmin)

	deliveries := app.Group("/api/deliveries", utils.AuthMiddleware)
	deliveries.Get("/", stockController.ListDeliveries)
	deliveries.Get("/upcoming", stockController.UpcomingDeliveries)
	deliveries.Post("/", admin, stockController.RecordDelivery)

	adjustments := app.Group("/api/adjustments", utils.AuthMiddleware)
	adjustments.Get("/", stockController.ListAdjustments)
	adjustments.Post("/", admin, stockController.ApplyAdjustment)
}
