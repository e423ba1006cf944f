package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Минимальная длина запроса и размер выдачи автодополнения
const (
	autocompleteMinLength = 2
	autocompleteLimit     = 10
)

// PartInput поля детали, принимаемые при создании и изменении
type PartInput struct {
	PartNumber      string          `json:"part_number" validate:"required,max=128"`
	PartName        string          `json:"part_name" validate:"max=200"`
	Supplier        string          `json:"supplier" validate:"max=100"`
	Description     string          `json:"description" validate:"max=500"`
	Type            string          `json:"type" validate:"omitempty,oneof=Essential Consumables"`
	QtyPerLRV       decimal.Decimal `json:"qty_per_lrv" validate:"gte=0"`
	QtyCurrentStock decimal.Decimal `json:"qty_current_stock" validate:"gte=0"`
	QtyBackOrdered  decimal.Decimal `json:"qty_back_ordered" validate:"gte=0"`
	BackOrderInfo   string          `json:"back_order_info" validate:"max=500"`
	Notes           string          `json:"notes" validate:"max=500"`
}

// PartPage страница каталога
type PartPage struct {
	Parts      []models.Part `json:"parts"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// PartQuery параметры списка деталей
type PartQuery struct {
	Search     string
	Supplier   string
	Component  string
	StockLevel string
	Page       int
}

// CatalogService управляет основным BOM-каталогом
type CatalogService struct {
	store          repository.Store
	notifier       Notifier
	fleetSize      int64
	lowStockTrains int64
	logger         *logrus.Logger
}

// NewCatalogService создает сервис каталога
func NewCatalogService(store repository.Store, notifier Notifier, fleetSize, lowStockTrains int64, logger *logrus.Logger) *CatalogService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &CatalogService{
		store:          store,
		notifier:       notifier,
		fleetSize:      fleetSize,
		lowStockTrains: lowStockTrains,
		logger:         logger,
	}
}

// LowStockThreshold порог покрытия, ниже которого деталь считается дефицитной
func (s *CatalogService) LowStockThreshold() decimal.Decimal {
	return decimal.NewFromInt(s.lowStockTrains)
}

// CreatePart добавляет деталь; номер детали должен быть уникальным
func (s *CatalogService) CreatePart(ctx context.Context, input PartInput) (*models.Part, error) {
	input = normalizePartInput(input)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	part := &models.Part{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		_, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
		if err == nil {
			return &DuplicateError{Kind: "part", Key: input.PartNumber}
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		s.applyInput(part, input)
		return tx.Parts().Create(ctx, part)
	})
	if err != nil {
		return nil, wrapPersistence("create_part", err)
	}

	s.logger.WithField("part_number", part.PartNumber).Info("part created")
	s.notifier.Publish(DashboardEvent{Type: EventCatalogChanged, Payload: part})
	return part, nil
}

// UpdatePart изменяет деталь и пересчитывает производные поля
func (s *CatalogService) UpdatePart(ctx context.Context, id uint, input PartInput) (*models.Part, error) {
	input = normalizePartInput(input)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	var part *models.Part
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Parts().FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "part", Key: idKey(id)}
		}
		if err != nil {
			return err
		}

		if existing.PartNumber != input.PartNumber {
			other, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
			if err == nil && other.ID != existing.ID {
				return &DuplicateError{Kind: "part", Key: input.PartNumber}
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		s.applyInput(existing, input)
		part = existing
		return tx.Parts().Save(ctx, existing)
	})
	if err != nil {
		return nil, wrapPersistence("update_part", err)
	}

	s.logger.WithField("part_number", part.PartNumber).Info("part updated")
	s.notifier.Publish(DashboardEvent{Type: EventCatalogChanged, Payload: part})
	return part, nil
}

// DeletePart удаляет деталь вместе с ее строками учета на площадках
func (s *CatalogService) DeletePart(ctx context.Context, id uint) error {
	err := s.store.Parts().Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Kind: "part", Key: idKey(id)}
	}
	if err != nil {
		return wrapPersistence("delete_part", err)
	}

	s.logger.WithField("part_id", id).Info("part deleted")
	s.notifier.Publish(DashboardEvent{Type: EventCatalogChanged, Payload: map[string]uint{"deleted_id": id}})
	return nil
}

// GetPart возвращает деталь по идентификатору
func (s *CatalogService) GetPart(ctx context.Context, id uint) (*models.Part, error) {
	part, err := s.store.Parts().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Kind: "part", Key: idKey(id)}
	}
	if err != nil {
		return nil, wrapPersistence("get_part", err)
	}
	return part, nil
}

// ListParts возвращает страницу каталога с фильтрами
func (s *CatalogService) ListParts(ctx context.Context, query PartQuery) (*PartPage, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}

	parts, total, err := s.store.Parts().Search(ctx, repository.PartFilter{
		Search:            query.Search,
		Supplier:          query.Supplier,
		Component:         query.Component,
		StockLevel:        query.StockLevel,
		LowStockThreshold: s.LowStockThreshold(),
		Page:              page,
		PerPage:           repository.DefaultPerPage,
	})
	if err != nil {
		return nil, wrapPersistence("list_parts", err)
	}

	return &PartPage{
		Parts:      parts,
		Total:      total,
		Page:       page,
		PerPage:    repository.DefaultPerPage,
		TotalPages: int(math.Ceil(float64(total) / float64(repository.DefaultPerPage))),
	}, nil
}

// Suppliers список поставщиков для фильтра
func (s *CatalogService) Suppliers(ctx context.Context) ([]string, error) {
	suppliers, err := s.store.Parts().DistinctSuppliers(ctx)
	return suppliers, wrapPersistence("list_suppliers", err)
}

// Components список компонентов для фильтра
func (s *CatalogService) Components(ctx context.Context) ([]string, error) {
	components, err := s.store.Parts().DistinctComponents(ctx)
	return components, wrapPersistence("list_components", err)
}

// Autocomplete подсказки по номеру и названию; короткий запрос дает пустой список
func (s *CatalogService) Autocomplete(ctx context.Context, query string) ([]models.Part, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < autocompleteMinLength {
		return []models.Part{}, nil
	}
	parts, err := s.store.Parts().Autocomplete(ctx, query, autocompleteLimit)
	return parts, wrapPersistence("autocomplete", err)
}

// UpsertPart создает или обновляет деталь по номеру; используется массовым импортом
func (s *CatalogService) UpsertPart(ctx context.Context, input PartInput, shippedOut *decimal.Decimal) (created bool, err error) {
	input = normalizePartInput(input)
	if err := ValidateInput(input); err != nil {
		return false, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		part, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
		if errors.Is(err, repository.ErrNotFound) {
			part = &models.Part{}
			created = true
		} else if err != nil {
			return err
		}

		s.applyInput(part, input)
		if shippedOut != nil {
			part.QtyShippedOut = clampNonNegative(*shippedOut)
		}
		if created {
			return tx.Parts().Create(ctx, part)
		}
		return tx.Parts().Save(ctx, part)
	})
	return created, wrapPersistence("upsert_part", err)
}

func (s *CatalogService) applyInput(part *models.Part, input PartInput) {
	part.PartNumber = input.PartNumber
	part.PartName = input.PartName
	part.Supplier = input.Supplier
	part.Description = input.Description
	part.Type = input.Type
	part.QtyPerLRV = input.QtyPerLRV
	part.QtyCurrentStock = clampNonNegative(input.QtyCurrentStock)
	part.QtyBackOrdered = input.QtyBackOrdered
	part.BackOrderInfo = input.BackOrderInfo
	part.Notes = input.Notes
	part.TotalNeededForFleet = TotalNeededForFleet(part, s.fleetSize)
	RecomputeCoverage(part)
}

func normalizePartInput(input PartInput) PartInput {
	input.PartNumber = strings.TrimSpace(input.PartNumber)
	input.PartName = strings.TrimSpace(input.PartName)
	input.Supplier = strings.TrimSpace(input.Supplier)
	input.Description = strings.TrimSpace(input.Description)
	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		input.Type = models.PartTypeEssential
	}
	return input
}
