package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"bominventory-backend/config"
	"bominventory-backend/models"
	"bominventory-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DeliveryInput данные о поступлении
type DeliveryInput struct {
	PartNumber       string          `json:"part_number" validate:"required,max=128"`
	PartName         string          `json:"part_name" validate:"max=200"`
	Supplier         string          `json:"supplier" validate:"max=100"`
	QuantityReceived decimal.Decimal `json:"quantity_received" validate:"gt=0"`
	DateReceived     time.Time       `json:"date_received"`
	DateExpected     *time.Time      `json:"date_expected,omitempty"`
	Notes            string          `json:"notes" validate:"max=500"`
}

// DeliveryResult итог записи поступления; Part равен nil, если детали нет в каталоге
type DeliveryResult struct {
	Delivery *models.Delivery `json:"delivery"`
	Part     *models.Part     `json:"part,omitempty"`
}

// AdjustmentInput данные ручной корректировки
type AdjustmentInput struct {
	PartNumber     string          `json:"part_number" validate:"required,max=128"`
	AdjustmentType string          `json:"adjustment_type" validate:"required,oneof=increase decrease"`
	Quantity       decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reason         string          `json:"reason" validate:"required,oneof=damage lost found correction other"`
	Notes          string          `json:"notes" validate:"max=500"`
	UserName       string          `json:"user_name" validate:"max=100"`
}

// AdjustmentResult итог корректировки
type AdjustmentResult struct {
	Adjustment *models.StockAdjustment `json:"adjustment"`
	Part       *models.Part            `json:"part"`
}

// ShipKitsInput отправка комплектов на площадку
type ShipKitsInput struct {
	Division string `json:"division" validate:"required,max=100"`
	NumKits  int64  `json:"num_kits" validate:"gt=0,lte=10000"`
	UserName string `json:"user_name" validate:"max=100"`
}

// CompleteTrainsInput завершение составов на площадке
type CompleteTrainsInput struct {
	Division  string `json:"division" validate:"required,max=100"`
	NumTrains int64  `json:"num_trains" validate:"gt=0,lte=10000"`
	UserName  string `json:"user_name" validate:"max=100"`
}

// ShipmentResult итог отправки комплектов
type ShipmentResult struct {
	Shipment   *models.KitShipment `json:"shipment"`
	Division   *models.Division    `json:"division"`
	PartsMoved int                 `json:"parts_moved"`
	UnitsMoved decimal.Decimal     `json:"units_moved"`
}

// CompletionResult итог завершения составов
type CompletionResult struct {
	Completion *models.TrainCompletion `json:"completion"`
	Division   *models.Division        `json:"division"`
	PartsUsed  int                     `json:"parts_used"`
	UnitsUsed  decimal.Decimal         `json:"units_used"`
}

// ReconciliationService применяет складские операции к каталогу и учету площадок
type ReconciliationService struct {
	store    repository.Store
	locker   Locker
	notifier Notifier
	metrics  *Metrics
	logger   *logrus.Logger
}

// NewReconciliationService создает сервис; nil-зависимости заменяются пустыми реализациями
func NewReconciliationService(store repository.Store, locker Locker, notifier Notifier, metrics *Metrics, logger *logrus.Logger) *ReconciliationService {
	if locker == nil {
		locker = NoopLocker{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &ReconciliationService{
		store:    store,
		locker:   locker,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// RecordDelivery записывает поступление; остаток растет, только если деталь есть в каталоге
func (s *ReconciliationService) RecordDelivery(ctx context.Context, input DeliveryInput) (*DeliveryResult, error) {
	input.PartNumber = strings.TrimSpace(input.PartNumber)
	if err := ValidateInput(input); err != nil {
		return nil, s.finish("record_delivery", logrus.Fields{"part_number": input.PartNumber}, err)
	}

	dateReceived := input.DateReceived
	if dateReceived.IsZero() {
		dateReceived = time.Now()
	}

	result := &DeliveryResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		part, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		delivery := &models.Delivery{
			PartNumber:       input.PartNumber,
			PartName:         input.PartName,
			Supplier:         input.Supplier,
			QuantityReceived: input.QuantityReceived,
			DateReceived:     models.DateOnly(dateReceived),
			Notes:            input.Notes,
		}
		if input.DateExpected != nil {
			expected := models.DateOnly(*input.DateExpected)
			delivery.DateExpected = &expected
		}

		if part != nil {
			part.QtyCurrentStock = part.QtyCurrentStock.Add(input.QuantityReceived)
			RecomputeCoverage(part)
			if err := tx.Parts().Save(ctx, part); err != nil {
				return err
			}
			delivery.PartID = &part.ID
			if delivery.PartName == "" {
				delivery.PartName = part.PartName
			}
			if delivery.Supplier == "" {
				delivery.Supplier = part.Supplier
			}
			result.Part = part
		}

		if err := tx.Logs().CreateDelivery(ctx, delivery); err != nil {
			return err
		}
		result.Delivery = delivery
		return nil
	})
	if err != nil {
		return nil, s.finish("record_delivery", logrus.Fields{"part_number": input.PartNumber}, err)
	}

	fields := logrus.Fields{
		"part_number": input.PartNumber,
		"quantity":    input.QuantityReceived.String(),
		"linked":      result.Part != nil,
	}
	s.finish("record_delivery", fields, nil)
	s.notifier.Publish(DashboardEvent{Type: EventDeliveryRecorded, Payload: result})
	return result, nil
}

// ApplyStockAdjustment увеличивает или уменьшает остаток; уменьшение не уводит остаток ниже нуля
func (s *ReconciliationService) ApplyStockAdjustment(ctx context.Context, input AdjustmentInput) (*AdjustmentResult, error) {
	input.PartNumber = strings.TrimSpace(input.PartNumber)
	fields := logrus.Fields{"part_number": input.PartNumber, "type": input.AdjustmentType}
	if err := ValidateInput(input); err != nil {
		return nil, s.finish("apply_adjustment", fields, err)
	}

	result := &AdjustmentResult{}
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		part, err := tx.Parts().FindByNumber(ctx, input.PartNumber)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "part", Key: input.PartNumber}
		}
		if err != nil {
			return err
		}

		switch input.AdjustmentType {
		case models.AdjustmentIncrease:
			part.QtyCurrentStock = part.QtyCurrentStock.Add(input.Quantity)
		case models.AdjustmentDecrease:
			part.QtyCurrentStock = clampNonNegative(part.QtyCurrentStock.Sub(input.Quantity))
		}
		RecomputeCoverage(part)
		if err := tx.Parts().Save(ctx, part); err != nil {
			return err
		}

		adjustment := &models.StockAdjustment{
			PartNumber:     part.PartNumber,
			AdjustmentType: input.AdjustmentType,
			Quantity:       input.Quantity,
			Reason:         input.Reason,
			Notes:          input.Notes,
			UserName:       input.UserName,
			PartID:         &part.ID,
		}
		if err := tx.Logs().CreateAdjustment(ctx, adjustment); err != nil {
			return err
		}

		result.Adjustment = adjustment
		result.Part = part
		return nil
	})
	if err != nil {
		return nil, s.finish("apply_adjustment", fields, err)
	}

	fields["quantity"] = input.Quantity.String()
	fields["stock"] = result.Part.QtyCurrentStock.String()
	s.finish("apply_adjustment", fields, nil)
	s.notifier.Publish(DashboardEvent{Type: EventStockAdjusted, Payload: result})
	return result, nil
}

// ShipKits списывает со склада детали на num_kits комплектов; при нехватке любой детали ничего не меняется
func (s *ReconciliationService) ShipKits(ctx context.Context, input ShipKitsInput) (*ShipmentResult, error) {
	input.Division = strings.TrimSpace(input.Division)
	fields := logrus.Fields{"division": input.Division, "num_kits": input.NumKits}
	if err := ValidateInput(input); err != nil {
		return nil, s.finish("ship_kits", fields, err)
	}

	unlock, err := s.locker.Lock(ctx, "division:"+input.Division)
	if err != nil {
		return nil, s.finish("ship_kits", fields, err)
	}
	defer unlock()

	result := &ShipmentResult{UnitsMoved: decimal.Zero}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		division, err := tx.Divisions().FindByName(ctx, input.Division)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "division", Key: input.Division}
		}
		if err != nil {
			return err
		}

		parts, err := tx.Parts().ListAll(ctx)
		if err != nil {
			return err
		}

		kits := decimal.NewFromInt(input.NumKits)
		required := make([]decimal.Decimal, len(parts))
		for i := range parts {
			required[i] = parts[i].QtyPerLRV.Mul(kits)
			if parts[i].QtyCurrentStock.LessThan(required[i]) {
				return &InsufficientStockError{
					PartNumber: parts[i].PartNumber,
					Required:   required[i].String(),
					Available:  parts[i].QtyCurrentStock.String(),
				}
			}
		}

		rows, err := tx.Ledger().ListByDivision(ctx, division.ID)
		if err != nil {
			return err
		}
		byPart := make(map[uint]*models.DivisionLedgerRow, len(rows))
		for i := range rows {
			byPart[rows[i].PartID] = &rows[i]
		}

		for i := range parts {
			part := &parts[i]
			part.QtyCurrentStock = part.QtyCurrentStock.Sub(required[i])
			part.QtyShippedOut = part.QtyShippedOut.Add(required[i])
			RecomputeCoverage(part)
			if err := tx.Parts().Save(ctx, part); err != nil {
				return err
			}

			row, ok := byPart[part.ID]
			if !ok {
				row = &models.DivisionLedgerRow{
					DivisionID:    division.ID,
					PartID:        part.ID,
					QtySentToSite: decimal.Zero,
					QtyUsedOnSite: decimal.Zero,
				}
			}
			row.QtySentToSite = row.QtySentToSite.Add(required[i])
			if err := tx.Ledger().Save(ctx, row); err != nil {
				return err
			}
			result.UnitsMoved = result.UnitsMoved.Add(required[i])
		}

		division.KitsSentToSite += input.NumKits
		if err := tx.Divisions().Save(ctx, division); err != nil {
			return err
		}

		shipment := &models.KitShipment{
			Reference:  uuid.NewString(),
			DivisionID: division.ID,
			NumKits:    input.NumKits,
			UserName:   input.UserName,
		}
		if err := tx.Logs().CreateKitShipment(ctx, shipment); err != nil {
			return err
		}

		result.Shipment = shipment
		result.Division = division
		result.PartsMoved = len(parts)
		return nil
	})
	if err != nil {
		return nil, s.finish("ship_kits", fields, err)
	}

	fields["reference"] = result.Shipment.Reference
	fields["units"] = result.UnitsMoved.String()
	s.finish("ship_kits", fields, nil)
	s.notifier.Publish(DashboardEvent{Type: EventKitsShipped, Payload: result})
	return result, nil
}

// CompleteTrains расходует детали, уже отправленные на площадку; основной склад не меняется
func (s *ReconciliationService) CompleteTrains(ctx context.Context, input CompleteTrainsInput) (*CompletionResult, error) {
	input.Division = strings.TrimSpace(input.Division)
	fields := logrus.Fields{"division": input.Division, "num_trains": input.NumTrains}
	if err := ValidateInput(input); err != nil {
		return nil, s.finish("complete_trains", fields, err)
	}

	unlock, err := s.locker.Lock(ctx, "division:"+input.Division)
	if err != nil {
		return nil, s.finish("complete_trains", fields, err)
	}
	defer unlock()

	result := &CompletionResult{UnitsUsed: decimal.Zero}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		division, err := tx.Divisions().FindByName(ctx, input.Division)
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Kind: "division", Key: input.Division}
		}
		if err != nil {
			return err
		}

		parts, err := tx.Parts().ListAll(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Ledger().ListByDivision(ctx, division.ID)
		if err != nil {
			return err
		}
		byPart := make(map[uint]*models.DivisionLedgerRow, len(rows))
		for i := range rows {
			byPart[rows[i].PartID] = &rows[i]
		}

		trains := decimal.NewFromInt(input.NumTrains)
		required := make([]decimal.Decimal, len(parts))
		for i := range parts {
			required[i] = parts[i].QtyPerLRV.Mul(trains)
			// QtyRemaining безопасен для nil: строки нет, значит остаток 0
			remaining := byPart[parts[i].ID].QtyRemaining()
			if remaining.LessThan(required[i]) {
				return &InsufficientOnSiteError{
					PartNumber: parts[i].PartNumber,
					Required:   required[i].String(),
					Remaining:  remaining.String(),
				}
			}
		}

		for i := range parts {
			row, ok := byPart[parts[i].ID]
			if !ok {
				// Сюда попадают только детали с нулевой потребностью
				continue
			}
			row.QtyUsedOnSite = row.QtyUsedOnSite.Add(required[i])
			if err := tx.Ledger().Save(ctx, row); err != nil {
				return err
			}
			result.PartsUsed++
			result.UnitsUsed = result.UnitsUsed.Add(required[i])
		}

		division.TrainsCompleted += input.NumTrains
		if err := tx.Divisions().Save(ctx, division); err != nil {
			return err
		}

		completion := &models.TrainCompletion{
			Reference:  uuid.NewString(),
			DivisionID: division.ID,
			NumTrains:  input.NumTrains,
			UserName:   input.UserName,
		}
		if err := tx.Logs().CreateTrainCompletion(ctx, completion); err != nil {
			return err
		}

		result.Completion = completion
		result.Division = division
		return nil
	})
	if err != nil {
		return nil, s.finish("complete_trains", fields, err)
	}

	fields["reference"] = result.Completion.Reference
	fields["units"] = result.UnitsUsed.String()
	s.finish("complete_trains", fields, nil)
	s.notifier.Publish(DashboardEvent{Type: EventTrainsCompleted, Payload: result})
	return result, nil
}

// finish пишет метрику и лог операции и возвращает ошибку в доменном виде
func (s *ReconciliationService) finish(op string, fields logrus.Fields, err error) error {
	err = wrapPersistence(op, err)
	s.metrics.observe(op, err)

	entry := s.logger.WithFields(fields).WithField("operation", op)
	var persistence *PersistenceError
	switch {
	case err == nil:
		entry.Info("stock operation committed")
	case errors.As(err, &persistence):
		config.LogError(s.logger, "ReconciliationService", op, "transaction rolled back", fields, err)
	default:
		entry.WithError(err).Warn("stock operation rejected")
	}
	return err
}
