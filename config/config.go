package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config содержит настройки приложения, собранные из переменных окружения
type Config struct {
	Port           string
	DatabaseURL    string
	SQLitePath     string
	CORSOrigins    string
	RedisURL       string
	LowStockTrains int64 // порог низкого остатка в LRV
	FleetSize      int64 // общее количество LRV в программе
	AdminEmail     string
	AdminPassword  string
	AdminName      string
	LogLevel       string
}

// Load читает .env (если есть) и переменные окружения
func Load() *Config {
	// .env не обязателен, в продакшене переменные задаются окружением
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:     getEnv("SQLITE_PATH", "bominventory.db"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		RedisURL:       strings.TrimSpace(os.Getenv("REDIS_URL")),
		LowStockTrains: getEnvInt("LOW_STOCK_TRAINS", 10),
		FleetSize:      getEnvInt("FLEET_SIZE", 233),
		AdminEmail:     strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		AdminName:      getEnv("ADMIN_NAME", "Administrator"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
