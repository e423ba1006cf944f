package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	// Количества отдаем в JSON числами, а не строками
	decimal.MarshalJSONWithoutQuotes = true
}

// UTCNow используется gorm для временных меток, чтобы SQLite сравнивал даты в одной зоне
func UTCNow() time.Time {
	return time.Now().UTC()
}

// InitDB инициализирует подключение к базе данных
func InitDB(databaseURL, sqlitePath string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		NowFunc: UTCNow,
		Logger:  logger.Default.LogMode(logger.Warn),
	}

	if databaseURL != "" {
		// Используем PostgreSQL для продакшена
		return gorm.Open(postgres.Open(databaseURL), gormConfig)
	}

	// Используем SQLite для разработки
	return gorm.Open(sqlite.Open(sqlitePath), gormConfig)
}

// AutoMigrate создает или обновляет схему для всех моделей
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Part{},
		&Division{},
		&DivisionLedgerRow{},
		&Delivery{},
		&StockAdjustment{},
		&DefectReport{},
		&KitShipment{},
		&TrainCompletion{},
	)
}

// DateOnly отбрасывает время суток и приводит дату к UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
