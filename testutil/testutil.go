package testutil

import (
	"testing"
	"time"

	"bominventory-backend/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// JWTSecret секрет по умолчанию, совпадающий с utils
const JWTSecret = "bominventory-secret-key-change-in-production"

// NewTestDB создает базу SQLite в памяти со всеми таблицами
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: models.UTCNow,
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Каждое новое соединение к :memory: получает пустую базу, поэтому держим ровно одно
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// Dec короткая запись для decimal из строки
func Dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// CreatePart создает деталь с заданными количествами
func CreatePart(t *testing.T, db *gorm.DB, partNumber string, qtyPerLRV, stock string) *models.Part {
	t.Helper()

	part := &models.Part{
		PartNumber:      partNumber,
		PartName:        "Part " + partNumber,
		Supplier:        "Test Supplier",
		Type:            models.PartTypeEssential,
		QtyPerLRV:       Dec(qtyPerLRV),
		QtyCurrentStock: Dec(stock),
	}
	if part.QtyPerLRV.IsPositive() {
		part.LRVCoverage = part.QtyCurrentStock.DivRound(part.QtyPerLRV, 4)
		part.CoverageLRVs = part.QtyCurrentStock.Div(part.QtyPerLRV).Floor().IntPart()
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("failed to create part %s: %v", partNumber, err)
	}
	return part
}

// CreateDivision создает площадку
func CreateDivision(t *testing.T, db *gorm.DB, name string) *models.Division {
	t.Helper()

	division := &models.Division{Name: name, Location: "Yard"}
	if err := db.Create(division).Error; err != nil {
		t.Fatalf("failed to create division %s: %v", name, err)
	}
	return division
}

// GenerateJWT создает тестовый токен с указанной ролью
func GenerateJWT(userID uint, role string) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   "user@test.com",
		"name":    "Test Operator",
		"role":    role,
		"exp":     time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}
