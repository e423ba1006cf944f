package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupPartRoutes настраивает маршруты BOM-каталога
func SetupPartRoutes(app *fiber.App, partController *controllers.PartController) {
	api := app.Group("/api/parts", utils.AuthMiddleware)
	admin := utils.RequireRole(models.RoleAdmin)

	// Статические пути регистрируются раньше /:id
	api.Get("/", partController.ListParts)
	api.Get("/filters", partController.Filters)
	api.Get("/autocomplete", partController.Autocomplete)
	api.Get("/:id", partController.GetPart)

	api.Post("/", admin, partController.CreatePart)
	api.Put("/:id", admin, partController.UpdatePart)
	api.Delete("/:id", admin, partController.DeletePart)
}
