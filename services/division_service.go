package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DivisionInput поля площадки
type DivisionInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Location string `json:"location" validate:"max=200"`
	Notes    string `json:"notes" validate:"max=500"`
}

// LedgerLine строка учета площадки в отчете
type LedgerLine struct {
	PartID        uint            `json:"part_id"`
	PartNumber    string          `json:"part_number"`
	PartName      string          `json:"part_name"`
	QtyPerLRV     decimal.Decimal `json:"qty_per_lrv"`
	QtySentToSite decimal.Decimal `json:"qty_sent_to_site"`
	QtyUsedOnSite decimal.Decimal `json:"qty_used_on_site"`
	QtyRemaining  decimal.Decimal `json:"qty_remaining"`
}

// DivisionDetail площадка с учетом по деталям и историей
type DivisionDetail struct {
	Division    *models.Division         `json:"division"`
	Ledger      []LedgerLine             `json:"ledger"`
	Shipments   []models.KitShipment     `json:"shipments"`
	Completions []models.TrainCompletion `json:"completions"`
}

// DivisionService управляет площадками
type DivisionService struct {
	store  repository.Store
	logger *logrus.Logger
}

// NewDivisionService создает сервис площадок
func NewDivisionService(store repository.Store, logger *logrus.Logger) *DivisionService {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &DivisionService{store: store, logger: logger}
}

// CreateDivision создает площадку с уникальным именем
func (s *DivisionService) CreateDivision(ctx context.Context, input DivisionInput) (*models.Division, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	division := &models.Division{Name: input.Name, Location: input.Location, Notes: input.Notes}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		_, err := tx.Divisions().FindByName(ctx, input.Name)
		if err == nil {
			return &DuplicateError{Kind: "division", Key: input.Name}
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.Divisions().Create(ctx, division)
	})
	if err != nil {
		return nil, wrapPersistence("create_division", err)
	}

	s.logger.WithField("division", division.Name).Info("division created")
	return division, nil
}

// ListDivisions возвращает все площадки
func (s *DivisionService) ListDivisions(ctx context.Context) ([]models.Division, error) {
	divisions, err := s.store.Divisions().List(ctx)
	return divisions, wrapPersistence("list_divisions", err)
}

// GetDivision возвращает площадку с учетом по каждой детали каталога
func (s *DivisionService) GetDivision(ctx context.Context, id uint) (*DivisionDetail, error) {
	division, err := s.store.Divisions().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Kind: "division", Key: idKey(id)}
	}
	if err != nil {
		return nil, wrapPersistence("get_division", err)
	}

	parts, err := s.store.Parts().ListAll(ctx)
	if err != nil {
		return nil, wrapPersistence("get_division", err)
	}
	rows, err := s.store.Ledger().ListByDivision(ctx, id)
	if err != nil {
		return nil, wrapPersistence("get_division", err)
	}
	byPart := make(map[uint]*models.DivisionLedgerRow, len(rows))
	for i := range rows {
		byPart[rows[i].PartID] = &rows[i]
	}

	detail := &DivisionDetail{Division: division, Ledger: make([]LedgerLine, 0, len(parts))}
	for _, part := range parts {
		line := LedgerLine{
			PartID:        part.ID,
			PartNumber:    part.PartNumber,
			PartName:      part.PartName,
			QtyPerLRV:     part.QtyPerLRV,
			QtySentToSite: decimal.Zero,
			QtyUsedOnSite: decimal.Zero,
			QtyRemaining:  decimal.Zero,
		}
		if row, ok := byPart[part.ID]; ok {
			line.QtySentToSite = row.QtySentToSite
			line.QtyUsedOnSite = row.QtyUsedOnSite
			line.QtyRemaining = row.QtyRemaining()
		}
		detail.Ledger = append(detail.Ledger, line)
	}

	if detail.Shipments, err = s.store.Logs().ListKitShipments(ctx, id); err != nil {
		return nil, wrapPersistence("get_division", err)
	}
	if detail.Completions, err = s.store.Logs().ListTrainCompletions(ctx, id); err != nil {
		return nil, wrapPersistence("get_division", err)
	}
	return detail, nil
}

// UpdateDivision меняет описательные поля; счетчики меняются только складскими операциями
func (s *DivisionService) UpdateDivision(ctx context.Context, id uint, input DivisionInput) (*models.Division, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	var division *models.Division
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.Divisions().FindByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "division", Key: idKey(id)}
		}
		if err != nil {
			return err
		}
		if existing.Name != input.Name {
			other, err := tx.Divisions().FindByName(ctx, input.Name)
			if err == nil && other.ID != existing.ID {
				return &DuplicateError{Kind: "division", Key: input.Name}
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
		}

		existing.Name = input.Name
		existing.Location = input.Location
		existing.Notes = input.Notes
		division = existing
		return tx.Divisions().Save(ctx, existing)
	})
	if err != nil {
		return nil, wrapPersistence("update_division", err)
	}
	return division, nil
}

// DeleteDivision удаляет площадку и ее учет
func (s *DivisionService) DeleteDivision(ctx context.Context, id uint) error {
	err := s.store.Divisions().Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Kind: "division", Key: idKey(id)}
	}
	if err != nil {
		return wrapPersistence("delete_division", err)
	}
	s.logger.WithField("division_id", id).Info("division deleted")
	return nil
}

func idKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
