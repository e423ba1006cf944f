package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/shopspring/decimal"
)

// Размеры выборок и окна отчетов
const (
	dashboardRecentDeliveries = 10
	dashboardLowStockItems    = 15
	reportWindowDays          = 30
	calculatorMaxTrains       = 1000
)

// DashboardMetrics сводка для главного экрана
type DashboardMetrics struct {
	TotalParts       int64             `json:"total_parts"`
	LowStockCount    int64             `json:"low_stock_count"`
	OutOfStockCount  int64             `json:"out_of_stock_count"`
	TotalStockUnits  decimal.Decimal   `json:"total_stock_units"`
	LowStockTrains   int64             `json:"low_stock_threshold"`
	RecentDeliveries []models.Delivery `json:"recent_deliveries"`
	LowStockItems    []models.Part     `json:"low_stock_items"`
}

// InventoryReport отчет по складу за последние 30 дней
type InventoryReport struct {
	GeneratedAt       time.Time                `json:"generated_at"`
	LowStockItems     []models.Part            `json:"low_stock_items"`
	OutOfStockItems   []models.Part            `json:"out_of_stock_items"`
	AllItems          []models.Part            `json:"all_items"`
	RecentDeliveries  []models.Delivery        `json:"recent_deliveries"`
	RecentAdjustments []models.StockAdjustment `json:"recent_adjustments"`
}

// ShortageLine строка калькулятора составов
type ShortageLine struct {
	PartID          uint            `json:"part_id"`
	PartNumber      string          `json:"part_number"`
	PartName        string          `json:"part_name"`
	QtyPerLRV       decimal.Decimal `json:"qty_per_lrv"`
	QtyCurrentStock decimal.Decimal `json:"qty_current_stock"`
	Needed          decimal.Decimal `json:"needed"`
	Shortage        decimal.Decimal `json:"shortage"`
	CanBuild        bool            `json:"can_build"`
}

// CalculatorResult результат калькулятора составов
type CalculatorResult struct {
	NumTrains     int64           `json:"num_trains"`
	Lines         []ShortageLine  `json:"lines"`
	PartsShort    int             `json:"parts_short"`
	TotalShortage decimal.Decimal `json:"total_shortage"`
}

// LogPage страница журнала
type LogPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// ReportService строит отчеты только для чтения
type ReportService struct {
	store          repository.Store
	lowStockTrains int64
	now            func() time.Time
}

// NewReportService создает сервис отчетов
func NewReportService(store repository.Store, lowStockTrains int64) *ReportService {
	return &ReportService{store: store, lowStockTrains: lowStockTrains, now: time.Now}
}

func (s *ReportService) threshold() decimal.Decimal {
	return decimal.NewFromInt(s.lowStockTrains)
}

// Dashboard сводные показатели склада
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	stats, err := s.store.Parts().Stats(ctx, s.threshold())
	if err != nil {
		return nil, wrapPersistence("dashboard", err)
	}
	recent, err := s.store.Logs().RecentDeliveries(ctx, dashboardRecentDeliveries)
	if err != nil {
		return nil, wrapPersistence("dashboard", err)
	}
	low, err := s.store.Parts().LowStock(ctx, s.threshold(), dashboardLowStockItems)
	if err != nil {
		return nil, wrapPersistence("dashboard", err)
	}

	return &DashboardMetrics{
		TotalParts:       stats.TotalParts,
		LowStockCount:    stats.LowStock,
		OutOfStockCount:  stats.OutOfStock,
		TotalStockUnits:  stats.TotalStockUnits,
		LowStockTrains:   s.lowStockTrains,
		RecentDeliveries: recent,
		LowStockItems:    low,
	}, nil
}

// InventoryReport полный отчет: дефицит, отсутствие, каталог, движения за 30 дней
func (s *ReportService) InventoryReport(ctx context.Context) (*InventoryReport, error) {
	now := s.now().UTC()
	since := models.DateOnly(now.AddDate(0, 0, -reportWindowDays))

	report := &InventoryReport{GeneratedAt: now}
	var err error
	if report.LowStockItems, err = s.store.Parts().LowStock(ctx, s.threshold(), 0); err != nil {
		return nil, wrapPersistence("inventory_report", err)
	}
	if report.OutOfStockItems, err = s.store.Parts().OutOfStock(ctx); err != nil {
		return nil, wrapPersistence("inventory_report", err)
	}
	if report.AllItems, err = s.store.Parts().ListAll(ctx); err != nil {
		return nil, wrapPersistence("inventory_report", err)
	}
	if report.RecentDeliveries, err = s.store.Logs().DeliveriesSince(ctx, since); err != nil {
		return nil, wrapPersistence("inventory_report", err)
	}
	if report.RecentAdjustments, err = s.store.Logs().AdjustmentsSince(ctx, since); err != nil {
		return nil, wrapPersistence("inventory_report", err)
	}
	return report, nil
}

// UpcomingDeliveries поставки с ожидаемой датой начиная с сегодняшнего дня
func (s *ReportService) UpcomingDeliveries(ctx context.Context) ([]models.Delivery, error) {
	deliveries, err := s.store.Logs().UpcomingDeliveries(ctx, s.now().UTC())
	return deliveries, wrapPersistence("upcoming_deliveries", err)
}

// TrainCalculator считает нехватку для num_trains составов по одной детали или по всем
func (s *ReportService) TrainCalculator(ctx context.Context, partNumber string, numTrains int64) (*CalculatorResult, error) {
	if numTrains < 1 || numTrains > calculatorMaxTrains {
		return nil, &ValidationError{Message: "num_trains must be between 1 and 1000"}
	}

	var parts []models.Part
	if partNumber = strings.TrimSpace(partNumber); partNumber != "" {
		part, err := s.store.Parts().FindByNumber(ctx, partNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Kind: "part", Key: partNumber}
		}
		if err != nil {
			return nil, wrapPersistence("train_calculator", err)
		}
		parts = []models.Part{*part}
	} else {
		all, err := s.store.Parts().ListAll(ctx)
		if err != nil {
			return nil, wrapPersistence("train_calculator", err)
		}
		parts = all
	}

	result := &CalculatorResult{NumTrains: numTrains, Lines: make([]ShortageLine, 0, len(parts)), TotalShortage: decimal.Zero}
	for i := range parts {
		needed, shortage := ComputeShortage(&parts[i], numTrains)
		result.Lines = append(result.Lines, ShortageLine{
			PartID:          parts[i].ID,
			PartNumber:      parts[i].PartNumber,
			PartName:        parts[i].PartName,
			QtyPerLRV:       parts[i].QtyPerLRV,
			QtyCurrentStock: parts[i].QtyCurrentStock,
			Needed:          needed,
			Shortage:        shortage,
			CanBuild:        shortage.IsZero(),
		})
		if shortage.IsPositive() {
			result.PartsShort++
			result.TotalShortage = result.TotalShortage.Add(shortage)
		}
	}

	sort.SliceStable(result.Lines, func(i, j int) bool {
		return result.Lines[i].Shortage.GreaterThan(result.Lines[j].Shortage)
	})
	return result, nil
}

// ListDeliveries страница журнала поступлений
func (s *ReportService) ListDeliveries(ctx context.Context, page int) (*LogPage[models.Delivery], error) {
	page = normalizePage(page)
	items, total, err := s.store.Logs().ListDeliveries(ctx, page, repository.DefaultPerPage)
	if err != nil {
		return nil, wrapPersistence("list_deliveries", err)
	}
	return newLogPage(items, total, page), nil
}

// ListAdjustments страница журнала корректировок
func (s *ReportService) ListAdjustments(ctx context.Context, page int) (*LogPage[models.StockAdjustment], error) {
	page = normalizePage(page)
	items, total, err := s.store.Logs().ListAdjustments(ctx, page, repository.DefaultPerPage)
	if err != nil {
		return nil, wrapPersistence("list_adjustments", err)
	}
	return newLogPage(items, total, page), nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func newLogPage[T any](items []T, total int64, page int) *LogPage[T] {
	return &LogPage[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    repository.DefaultPerPage,
		TotalPages: int(math.Ceil(float64(total) / float64(repository.DefaultPerPage))),
	}
}
