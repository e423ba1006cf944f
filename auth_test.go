package main

import (
	"net/http"
	"testing"

	"bominventory-backend/config"
	"bominventory-backend/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaultAdmin(t *testing.T) {
	_, db := setupTestApp(t)
	log := logrus.New()
	cfg := &config.Config{AdminEmail: "admin@plant.test", AdminPassword: "password123", AdminName: "Store Admin"}

	initDefaultAdmin(db, cfg, log)
	// Повторный вызов не создает второго администратора
	initDefaultAdmin(db, cfg, log)

	var admins []models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@plant.test", admins[0].Email)
	assert.True(t, admins[0].IsActive)
	assert.NotEqual(t, "password123", admins[0].PasswordHash)
}

func TestInitDefaultAdminSkipsWithoutCredentials(t *testing.T) {
	_, db := setupTestApp(t)

	initDefaultAdmin(db, &config.Config{}, logrus.New())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogin(t *testing.T) {
	app, db := setupTestApp(t)
	initDefaultAdmin(db, &config.Config{AdminEmail: "admin@plant.test", AdminPassword: "password123", AdminName: "Store Admin"}, logrus.New())

	tests := []struct {
		name           string
		email          string
		password       string
		expectedStatus int
	}{
		{"Успешный вход", "admin@plant.test", "password123", http.StatusOK},
		{"Email без учета регистра", "  ADMIN@plant.test ", "password123", http.StatusOK},
		{"Неверный пароль", "admin@plant.test", "wrong-password", http.StatusUnauthorized},
		{"Неизвестный пользователь", "nobody@plant.test", "password123", http.StatusUnauthorized},
		{"Некорректный email", "not-an-email", "password123", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, body["success"])
			if tt.expectedStatus == http.StatusOK {
				assert.NotEmpty(t, body["token"])
				user := body["user"].(map[string]any)
				assert.Equal(t, models.RoleAdmin, user["role"])
			}
		})
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	app, db := setupTestApp(t)
	initDefaultAdmin(db, &config.Config{AdminEmail: "admin@plant.test", AdminPassword: "password123", AdminName: "Store Admin"}, logrus.New())
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "admin@plant.test").Update("is_active", false).Error)

	status, body := doJSON(t, app, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "admin@plant.test",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Account is disabled", body["message"])
}

func TestMeAndCreateUser(t *testing.T) {
	app, db := setupTestApp(t)
	initDefaultAdmin(db, &config.Config{AdminEmail: "admin@plant.test", AdminPassword: "password123", AdminName: "Store Admin"}, logrus.New())

	status, body := doJSON(t, app, http.MethodGet, "/auth/me", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin@plant.test", body["user"].(map[string]any)["email"])

	newUser := map[string]string{"name": "Yard Clerk", "email": "clerk@plant.test", "password": "password123"}

	status, body = doJSON(t, app, http.MethodPost, "/api/users", adminToken, newUser)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, models.RoleViewer, body["user"].(map[string]any)["role"])

	status, _ = doJSON(t, app, http.MethodPost, "/api/users", adminToken, newUser)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/users", viewerToken, map[string]string{
		"name": "Other", "email": "other@plant.test", "password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/users", adminToken, map[string]string{
		"name": "Short", "email": "short@plant.test", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["errors"])
}
