package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupDefectRoutes настраивает маршруты журнала дефектов
func SetupDefectRoutes(app *fiber.App, defectController *controllers.DefectController) {
	api := app.Group("/api/defects", utils.AuthMiddleware)

	api.Get("/", defectController.ListDefects)
	api.Post("/", utils.RequireRole(models.RoleAdmin), defectController.CreateDefect)
}
