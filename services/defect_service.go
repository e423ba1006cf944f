package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/shopspring/decimal"
)

// DefectInput данные отчета о дефекте
type DefectInput struct {
	PartNumber   string          `json:"part_number" validate:"required,max=128"`
	Quantity     decimal.Decimal `json:"quantity" validate:"gt=0"`
	DivisionID   *uint           `json:"division_id,omitempty"`
	DateReported time.Time       `json:"date_reported"`
	Notes        string          `json:"notes" validate:"max=500"`
}

// DefectService журнал дефектных деталей; остатки не меняет
type DefectService struct {
	store repository.Store
}

// NewDefectService создает сервис дефектов
func NewDefectService(store repository.Store) *DefectService {
	return &DefectService{store: store}
}

// CreateDefect записывает дефект; деталь и площадка, если указана, должны существовать
func (s *DefectService) CreateDefect(ctx context.Context, input DefectInput) (*models.DefectReport, error) {
	input.PartNumber = strings.TrimSpace(input.PartNumber)
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	reported := input.DateReported
	if reported.IsZero() {
		reported = time.Now()
	}

	var defect *models.DefectReport
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		part, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "part", Key: input.PartNumber}
		}
		if err != nil {
			return err
		}

		if input.DivisionID != nil {
			if _, err := tx.Divisions().FindByID(ctx, *input.DivisionID); errors.Is(err, repository.ErrNotFound) {
				return &NotFoundError{Kind: "division", Key: idKey(*input.DivisionID)}
			} else if err != nil {
				return err
			}
		}

		defect = &models.DefectReport{
			PartNumber:   part.PartNumber,
			PartName:     part.PartName,
			Quantity:     input.Quantity,
			DivisionID:   input.DivisionID,
			DateReported: models.DateOnly(reported),
			Notes:        input.Notes,
		}
		return tx.Logs().CreateDefect(ctx, defect)
	})
	if err != nil {
		return nil, wrapPersistence("create_defect", err)
	}
	return defect, nil
}

// ListDefects возвращает дефекты, при необходимости по одной площадке
func (s *DefectService) ListDefects(ctx context.Context, divisionID *uint) ([]models.DefectReport, error) {
	defects, err := s.store.Logs().ListDefects(ctx, divisionID)
	return defects, wrapPersistence("list_defects", err)
}
