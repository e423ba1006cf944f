package repository

import (
	"context"
	"errors"
	"time"

	"bominventory-backend/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound возвращается, когда запись не найдена
var ErrNotFound = errors.New("record not found")

// Уровни остатка для фильтра каталога
const (
	StockLevelLow = "low"
	StockLevelOut = "out"
)

// PartFilter параметры поиска по каталогу
type PartFilter struct {
	Search            string
	Supplier          string
	Component         string
	StockLevel        string
	LowStockThreshold decimal.Decimal
	Page              int
	PerPage           int
}

// PartStats агрегаты каталога для дашборда
type PartStats struct {
	TotalParts      int64
	LowStock        int64
	OutOfStock      int64
	TotalStockUnits decimal.Decimal
}

// PartRepository доступ к каталогу деталей
type PartRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Part, error)
	FindByNumber(ctx context.Context, partNumber string) (*models.Part, error)
	ListAll(ctx context.Context) ([]models.Part, error)
	Search(ctx context.Context, filter PartFilter) ([]models.Part, int64, error)
	Autocomplete(ctx context.Context, query string, limit int) ([]models.Part, error)
	DistinctSuppliers(ctx context.Context) ([]string, error)
	DistinctComponents(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, lowStockThreshold decimal.Decimal) (PartStats, error)
	LowStock(ctx context.Context, lowStockThreshold decimal.Decimal, limit int) ([]models.Part, error)
	OutOfStock(ctx context.Context) ([]models.Part, error)
	Create(ctx context.Context, part *models.Part) error
	Save(ctx context.Context, part *models.Part) error
	Delete(ctx context.Context, id uint) error
}

// DivisionRepository доступ к площадкам
type DivisionRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Division, error)
	FindByName(ctx context.Context, name string) (*models.Division, error)
	List(ctx context.Context) ([]models.Division, error)
	Create(ctx context.Context, division *models.Division) error
	Save(ctx context.Context, division *models.Division) error
	Delete(ctx context.Context, id uint) error
}

// LedgerRepository доступ к строкам учета по площадкам
type LedgerRepository interface {
	ListByDivision(ctx context.Context, divisionID uint) ([]models.DivisionLedgerRow, error)
	Save(ctx context.Context, row *models.DivisionLedgerRow) error
}

// LogRepository журнал операций со складом
type LogRepository interface {
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	DeliveryExists(ctx context.Context, partNumber string, dateReceived time.Time) (bool, error)
	ListDeliveries(ctx context.Context, page, perPage int) ([]models.Delivery, int64, error)
	RecentDeliveries(ctx context.Context, limit int) ([]models.Delivery, error)
	DeliveriesSince(ctx context.Context, since time.Time) ([]models.Delivery, error)
	UpcomingDeliveries(ctx context.Context, from time.Time) ([]models.Delivery, error)
	CreateAdjustment(ctx context.Context, adjustment *models.StockAdjustment) error
	ListAdjustments(ctx context.Context, page, perPage int) ([]models.StockAdjustment, int64, error)
	AdjustmentsSince(ctx context.Context, since time.Time) ([]models.StockAdjustment, error)
	CreateDefect(ctx context.Context, defect *models.DefectReport) error
	ListDefects(ctx context.Context, divisionID *uint) ([]models.DefectReport, error)
	CreateKitShipment(ctx context.Context, shipment *models.KitShipment) error
	CreateTrainCompletion(ctx context.Context, completion *models.TrainCompletion) error
	ListKitShipments(ctx context.Context, divisionID uint) ([]models.KitShipment, error)
	ListTrainCompletions(ctx context.Context, divisionID uint) ([]models.TrainCompletion, error)
}

// Store объединяет репозитории и дает транзакционные границы
type Store interface {
	Parts() PartRepository
	Divisions() DivisionRepository
	Ledger() LedgerRepository
	Logs() LogRepository
	// Transaction выполняет fn в одной транзакции; любая ошибка откатывает все записи
	Transaction(ctx context.Context, fn func(Store) error) error
}
