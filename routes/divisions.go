package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupDivisionRoutes настраивает маршруты площадок, отправок и завершений составов
func SetupDivisionRoutes(app *fiber.App, divisionController *controllers.DivisionController) {
	admin := utils.RequireRole(models.RoleAdmin)

	divisions := app.Group("/api/divisions", utils.AuthMiddleware)
	divisions.Get("/", divisionController.ListDivisions)
	divisions.Get("/:id", divisionController.GetDivision)
	divisions.Post("/", admin, divisionController.CreateDivision)
	divisions.Put("/:id", admin, divisionController.UpdateDivision)
	divisions.Delete("/:id", admin, divisionController.DeleteDivision)

	// Площадка передается по имени в теле запроса
	app.Post("/api/shipments", utils.AuthMiddleware, admin, divisionController.ShipKits)
	app.Post("/api/train-completions", utils.AuthMiddleware, admin, divisionController.CompleteTrains)
}
