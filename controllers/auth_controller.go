package controllers

import (
	"errors"
	"strings"

	"bominventory-backend/models"
	"bominventory-backend/services"
	"bominventory-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthController контроллер для аутентификации операторов склада
type AuthController struct {
	DB *gorm.DB
}

// NewAuthController создает новый экземпляр AuthController
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db}
}

// LoginRequest структура запроса входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest структура запроса создания оператора
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=viewer admin"`
}

// UserInfo публичные поля пользователя
type UserInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthResponse структура ответа аутентификации
type AuthResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token,omitempty"`
	User    *UserInfo `json:"user,omitempty"`
}

func userInfo(user *models.User) *UserInfo {
	return &UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

// Login обрабатывает вход пользователя
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := services.ValidateInput(req); err != nil {
		return respondError(c, err)
	}

	// Ищем пользователя
	var user models.User
	if err := ac.DB.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(AuthResponse{
			Success: false,
			Message: "Invalid email or password",
		})
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(AuthResponse{
			Success: false,
			Message: "Invalid email or password",
		})
	}

	if !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(AuthResponse{
			Success: false,
			Message: "Account is disabled",
		})
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    userInfo(&user),
	})
}

// CreateUser создает оператора; доступно только администратору
func (ac *AuthController) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := services.ValidateInput(req); err != nil {
		return respondError(c, err)
	}

	// Проверяем, существует ли пользователь
	var existing models.User
	err := ac.DB.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return respondError(c, &services.DuplicateError{Kind: "user", Key: req.Email})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return respondError(c, err)
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := ac.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Success: true,
		Message: "User created",
		User:    userInfo(&user),
	})
}

// Me возвращает текущего пользователя
func (ac *AuthController) Me(c *fiber.Ctx) error {
	auth, ok := utils.GetAuthContext(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}

	var user models.User
	if err := ac.DB.WithContext(c.UserContext()).First(&user, auth.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, &services.NotFoundError{Kind: "user", Key: auth.Email})
		}
		return respondError(c, err)
	}

	return c.JSON(AuthResponse{
		Success: true,
		Message: "Current user",
		User:    userInfo(&user),
	})
}
