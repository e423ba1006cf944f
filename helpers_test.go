package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	adminToken  = testutil.GenerateJWT(1, models.RoleAdmin)
	viewerToken = testutil.GenerateJWT(2, models.RoleViewer)
)

// setupTestApp собирает приложение поверх базы в памяти
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		CORSOrigins:    "http://localhost:3000",
		LowStockTrains: 10,
		FleetSize:      233,
	}
	return buildApp(appDeps{DB: db, Config: cfg}), db
}

// doJSON выполняет запрос с JSON телом и разбирает ответ
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return decodeResponse(t, app, req)
}

func decodeResponse(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}
