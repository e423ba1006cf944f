package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bominventory-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore реализация Store поверх gorm
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore создает хранилище
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Parts возвращает репозиторий деталей
func (s *GormStore) Parts() PartRepository {
	return &gormPartRepository{db: s.db, lock: s.inTx}
}

// Divisions возвращает репозиторий площадок
func (s *GormStore) Divisions() DivisionRepository {
	return &gormDivisionRepository{db: s.db, lock: s.inTx}
}

// Ledger возвращает репозиторий строк учета
func (s *GormStore) Ledger() LedgerRepository {
	return &gormLedgerRepository{db: s.db, lock: s.inTx}
}

// Logs возвращает журнал операций
func (s *GormStore) Logs() LogRepository {
	return &gormLogRepository{db: s.db}
}

// Transaction открывает транзакцию; вложенный вызов переиспользует текущую
func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

// query применяет контекст и, внутри транзакции, блокировку строк на чтение
func query(ctx context.Context, db *gorm.DB, lock bool) *gorm.DB {
	q := db.WithContext(ctx)
	if lock {
		// SQLite пропускает FOR UPDATE, PostgreSQL блокирует строки до конца транзакции
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// DefaultPerPage размер страницы списков по умолчанию
const DefaultPerPage = 50

func offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type gormPartRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *gormPartRepository) FindByID(ctx context.Context, id uint) (*models.Part, error) {
	var part models.Part
	if err := query(ctx, r.db, r.lock).First(&part, id).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

func (r *gormPartRepository) FindByNumber(ctx context.Context, partNumber string) (*models.Part, error) {
	var part models.Part
	if err := query(ctx, r.db, r.lock).Where("part_number = ?", partNumber).First(&part).Error; err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

// ListAll возвращает весь каталог в порядке номеров деталей
func (r *gormPartRepository) ListAll(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	err := query(ctx, r.db, r.lock).Order("part_number ASC").Find(&parts).Error
	return parts, err
}

func (r *gormPartRepository) Search(ctx context.Context, filter PartFilter) ([]models.Part, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Part{})

	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(part_number) LIKE ? OR LOWER(part_name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(supplier) LIKE ?",
			like, like, like, like)
	}
	if filter.Supplier != "" {
		q = q.Where("supplier = ?", filter.Supplier)
	}
	if filter.Component != "" {
		q = q.Where("description = ?", filter.Component)
	}
	switch filter.StockLevel {
	case StockLevelLow:
		q = q.Where("lrv_coverage < ?", filter.LowStockThreshold)
	case StockLevelOut:
		q = q.Where("qty_current_stock <= 0")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	var parts []models.Part
	err := q.Order("part_number ASC").Offset(offset(filter.Page, perPage)).Limit(perPage).Find(&parts).Error
	return parts, total, err
}

func (r *gormPartRepository) Autocomplete(ctx context.Context, term string, limit int) ([]models.Part, error) {
	like := "%" + strings.ToLower(term) + "%"
	var parts []models.Part
	err := r.db.WithContext(ctx).
		Where("LOWER(part_number) LIKE ? OR LOWER(part_name) LIKE ?", like, like).
		Order("part_number ASC").
		Limit(limit).
		Find(&parts).Error
	return parts, err
}

func (r *gormPartRepository) DistinctSuppliers(ctx context.Context) ([]string, error) {
	var suppliers []string
	err := r.db.WithContext(ctx).Model(&models.Part{}).
		Where("supplier IS NOT NULL AND supplier <> ''").
		Distinct().Order("supplier").Pluck("supplier", &suppliers).Error
	return suppliers, err
}

func (r *gormPartRepository) DistinctComponents(ctx context.Context) ([]string, error) {
	var components []string
	err := r.db.WithContext(ctx).Model(&models.Part{}).
		Where("description IS NOT NULL AND description <> ''").
		Distinct().Order("description").Pluck("description", &components).Error
	return components, err
}

// Stats считает детали, низкий остаток, отсутствие и общий объем склада
func (r *gormPartRepository) Stats(ctx context.Context, lowStockThreshold decimal.Decimal) (PartStats, error) {
	var stats PartStats
	q := r.db.WithContext(ctx).Model(&models.Part{})
	if err := q.Count(&stats.TotalParts).Error; err != nil {
		return stats, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Part{}).Where("lrv_coverage < ?", lowStockThreshold).Count(&stats.LowStock).Error; err != nil {
		return stats, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Part{}).Where("qty_current_stock <= 0").Count(&stats.OutOfStock).Error; err != nil {
		return stats, err
	}

	var sum struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&models.Part{}).Select("COALESCE(SUM(qty_current_stock), 0) AS total").Scan(&sum).Error; err != nil {
		return stats, err
	}
	stats.TotalStockUnits = sum.Total
	return stats, nil
}

// LowStock возвращает детали с покрытием ниже порога, самые дефицитные первыми
func (r *gormPartRepository) LowStock(ctx context.Context, lowStockThreshold decimal.Decimal, limit int) ([]models.Part, error) {
	q := r.db.WithContext(ctx).Where("lrv_coverage < ?", lowStockThreshold).Order("lrv_coverage ASC, part_number ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var parts []models.Part
	err := q.Find(&parts).Error
	return parts, err
}

func (r *gormPartRepository) OutOfStock(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	err := r.db.WithContext(ctx).Where("qty_current_stock <= 0").Order("part_number ASC").Find(&parts).Error
	return parts, err
}

func (r *gormPartRepository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(part).Error
}

func (r *gormPartRepository) Save(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(part).Error
}

// Delete удаляет деталь вместе со строками учета; история поступлений сохраняет номер детали
func (r *gormPartRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Part{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("part_id = ?", id).Delete(&models.DivisionLedgerRow{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Delivery{}).Where("part_id = ?", id).Update("part_id", nil).Error; err != nil {
			return err
		}
		return tx.Model(&models.StockAdjustment{}).Where("part_id = ?", id).Update("part_id", nil).Error
	})
}

type gormDivisionRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *gormDivisionRepository) FindByID(ctx context.Context, id uint) (*models.Division, error) {
	var division models.Division
	if err := query(ctx, r.db, r.lock).First(&division, id).Error; err != nil {
		return nil, translate(err)
	}
	return &division, nil
}

func (r *gormDivisionRepository) FindByName(ctx context.Context, name string) (*models.Division, error) {
	var division models.Division
	if err := query(ctx, r.db, r.lock).Where("name = ?", name).First(&division).Error; err != nil {
		return nil, translate(err)
	}
	return &division, nil
}

func (r *gormDivisionRepository) List(ctx context.Context) ([]models.Division, error) {
	var divisions []models.Division
	err := r.db.WithContext(ctx).Order("name ASC").Find(&divisions).Error
	return divisions, err
}

func (r *gormDivisionRepository) Create(ctx context.Context, division *models.Division) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(division).Error
}

func (r *gormDivisionRepository) Save(ctx context.Context, division *models.Division) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(division).Error
}

// Delete удаляет площадку, ее строки учета и историю отправок
func (r *gormDivisionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Division{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("division_id = ?", id).Delete(&models.DivisionLedgerRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("division_id = ?", id).Delete(&models.KitShipment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("division_id = ?", id).Delete(&models.TrainCompletion{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.DefectReport{}).Where("division_id = ?", id).Update("division_id", nil).Error
	})
}

type gormLedgerRepository struct {
	db   *gorm.DB
	lock bool
}

func (r *gormLedgerRepository) ListByDivision(ctx context.Context, divisionID uint) ([]models.DivisionLedgerRow, error) {
	var rows []models.DivisionLedgerRow
	err := query(ctx, r.db, r.lock).Where("division_id = ?", divisionID).Order("part_id ASC").Find(&rows).Error
	return rows, err
}

func (r *gormLedgerRepository) Save(ctx context.Context, row *models.DivisionLedgerRow) error {
	return r.db.WithContext(ctx).Save(row).Error
}

type gormLogRepository struct {
	db *gorm.DB
}

func (r *gormLogRepository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(delivery).Error
}

func (r *gormLogRepository) DeliveryExists(ctx context.Context, partNumber string, dateReceived time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("part_number = ? AND date_received = ?", partNumber, models.DateOnly(dateReceived)).
		Count(&count).Error
	return count > 0, err
}

func (r *gormLogRepository) ListDeliveries(ctx context.Context, page, perPage int) ([]models.Delivery, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Delivery{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).Order("date_received DESC, id DESC").Offset(offset(page, perPage)).Limit(perPage).Find(&deliveries).Error
	return deliveries, total, err
}

func (r *gormLogRepository) RecentDeliveries(ctx context.Context, limit int) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).Order("date_received DESC, id DESC").Limit(limit).Find(&deliveries).Error
	return deliveries, err
}

func (r *gormLogRepository) DeliveriesSince(ctx context.Context, since time.Time) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).Where("date_received >= ?", since).Order("date_received DESC, id DESC").Find(&deliveries).Error
	return deliveries, err
}

// UpcomingDeliveries поставки с ожидаемой датой не раньше from
func (r *gormLogRepository) UpcomingDeliveries(ctx context.Context, from time.Time) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("date_expected IS NOT NULL AND date_expected >= ?", models.DateOnly(from)).
		Order("date_expected ASC, id ASC").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *gormLogRepository) CreateAdjustment(ctx context.Context, adjustment *models.StockAdjustment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(adjustment).Error
}

func (r *gormLogRepository) ListAdjustments(ctx context.Context, page, perPage int) ([]models.StockAdjustment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.StockAdjustment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var adjustments []models.StockAdjustment
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Offset(offset(page, perPage)).Limit(perPage).Find(&adjustments).Error
	return adjustments, total, err
}

func (r *gormLogRepository) AdjustmentsSince(ctx context.Context, since time.Time) ([]models.StockAdjustment, error) {
	var adjustments []models.StockAdjustment
	err := r.db.WithContext(ctx).Where("created_at >= ?", since).Order("created_at DESC, id DESC").Find(&adjustments).Error
	return adjustments, err
}

func (r *gormLogRepository) CreateDefect(ctx context.Context, defect *models.DefectReport) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(defect).Error
}

func (r *gormLogRepository) ListDefects(ctx context.Context, divisionID *uint) ([]models.DefectReport, error) {
	q := r.db.WithContext(ctx).Preload("Division").Order("date_reported DESC, id DESC")
	if divisionID != nil {
		q = q.Where("division_id = ?", *divisionID)
	}
	var defects []models.DefectReport
	err := q.Find(&defects).Error
	return defects, err
}

func (r *gormLogRepository) CreateKitShipment(ctx context.Context, shipment *models.KitShipment) error {
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *gormLogRepository) CreateTrainCompletion(ctx context.Context, completion *models.TrainCompletion) error {
	return r.db.WithContext(ctx).Create(completion).Error
}

func (r *gormLogRepository) ListKitShipments(ctx context.Context, divisionID uint) ([]models.KitShipment, error) {
	var shipments []models.KitShipment
	err := r.db.WithContext(ctx).Where("division_id = ?", divisionID).Order("created_at DESC, id DESC").Find(&shipments).Error
	return shipments, err
}

func (r *gormLogRepository) ListTrainCompletions(ctx context.Context, divisionID uint) ([]models.TrainCompletion, error) {
	var completions []models.TrainCompletion
	err := r.db.WithContext(ctx).Where("division_id = ?", divisionID).Order("created_at DESC, id DESC").Find(&completions).Error
	return completions, err
}
