package routes

import (
	"bominventory-backend/controllers"
	"bominventory-backend/models"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes настраивает маршруты для аутентификации и операторов
func SetupAuthRoutes(app *fiber.App, authController *controllers.AuthController) {
	// Группа маршрутов для аутентификации
	auth := app.Group("/auth")

	// POST /auth/login - вход пользователя
	auth.Post("/login", authController.Login)

	// GET /auth/me - текущий пользователь
	auth.Get("/me", utils.AuthMiddleware, authController.Me)

	// POST /api/users - создание оператора (только администратор)
	app.Post("/api/users", utils.AuthMiddleware, utils.RequireRole(models.RoleAdmin), authController.CreateUser)
}
