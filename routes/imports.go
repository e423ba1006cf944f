package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupImportRoutes настраивает маршруты массовой загрузки
func SetupImportRoutes(app *fiber.App, importController *controllers.ImportController) {
	api := app.Group("/api/import", utils.AuthMiddleware, utils.RequireRole(models.RoleAdmin))

	api.Post("/bom", importController.ImportBOM)
	api.Post("/deliveries", importController.ImportDeliveries)
}
