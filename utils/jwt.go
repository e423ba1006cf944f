package utils

import (
	"os"
	"strings"
	"time"

	"bominventory-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "bominventory-secret-key-change-in-production"

// Claims представляет структуру JWT токена
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthContext данные авторизованного запроса, доступные обработчикам
type AuthContext struct {
	UserID uint
	Email  string
	Name   string
	Role   string
}

// IsAdmin проверяет роль администратора
func (a AuthContext) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

const authContextKey = "auth"

func secretKey() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	return []byte(secret)
}

// GenerateJWT создает JWT токен для пользователя
func GenerateJWT(userID uint, email, name, role string) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // Токен действителен 24 часа
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateJWT проверяет и парсит JWT токен
func ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем метод подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secretKey(), nil
	}, jwt.WithLeeway(5*time.Minute))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}

// AuthMiddleware проверяет Bearer токен и кладет AuthContext в Locals
func AuthMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Authorization header required",
		})
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Invalid authorization header format",
		})
	}

	claims, err := ValidateJWT(tokenParts[1])
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"message": "Invalid token",
		})
	}

	role := claims.Role
	if role == "" {
		role = models.RoleViewer
	}
	c.Locals(authContextKey, AuthContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   role,
	})

	return c.Next()
}

// GetAuthContext возвращает контекст авторизации текущего запроса
func GetAuthContext(c *fiber.Ctx) (AuthContext, bool) {
	auth, ok := c.Locals(authContextKey).(AuthContext)
	return auth, ok
}

// RequireRole пропускает запрос только с одной из указанных ролей
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth, ok := GetAuthContext(c)
		if !ok {
			return c.Status(401).JSON(fiber.Map{
				"success": false,
				"message": "Authentication required",
			})
		}
		for _, role := range roles {
			if auth.Role == role {
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"message": "Insufficient permissions",
		})
	}
}
