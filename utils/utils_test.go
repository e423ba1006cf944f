package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"bominventory-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTGenerationAndValidation(t *testing.T) {
	token, err := GenerateJWT(1, "test@example.com", "Tester", models.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, "Tester", claims.Name)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateJWTRejectsForeignSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	_, err = ValidateJWT(tokenString)
	assert.Error(t, err)
}

func TestAuthMiddlewareAndRequireRole(t *testing.T) {
	app := fiber.New()
	app.Get("/read", AuthMiddleware, func(c *fiber.Ctx) error {
		auth, _ := GetAuthContext(c)
		return c.SendString(auth.Role)
	})
	app.Post("/write", AuthMiddleware, RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(204)
	})

	viewerToken, _ := GenerateJWT(2, "viewer@example.com", "Viewer", models.RoleViewer)
	adminToken, _ := GenerateJWT(1, "admin@example.com", "Admin", models.RoleAdmin)

	tests := []struct {
		name           string
		method         string
		path           string
		header         string
		expectedStatus int
	}{
		{"Без заголовка", "GET", "/read", "", 401},
		{"Неверный формат", "GET", "/read", "Token abc", 401},
		{"Неверный токен", "GET", "/read", "Bearer abc", 401},
		{"Чтение наблюдателем", "GET", "/read", "Bearer " + viewerToken, 200},
		{"Запись наблюдателем", "POST", "/write", "Bearer " + viewerToken, 403},
		{"Запись администратором", "POST", "/write", "Bearer " + adminToken, 204},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestValidateStruct(t *testing.T) {
	type input struct {
		PartNumber string          `json:"part_number" validate:"required"`
		Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	}

	assert.Nil(t, ValidateStruct(input{PartNumber: "P1", Quantity: decimal.NewFromInt(1)}))

	errs := ValidateStruct(input{Quantity: decimal.NewFromInt(-1)})
	require.Len(t, errs, 2)
	assert.Equal(t, "part_number", errs[0].Field)
	assert.Equal(t, "required", errs[0].Tag)
	assert.Equal(t, "quantity", errs[1].Field)
	assert.Equal(t, "gt", errs[1].Tag)
}
