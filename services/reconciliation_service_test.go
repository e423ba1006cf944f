package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bominventory-backend/models"
	"bominventory-backend/repository"
	"bominventory-backend/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	events []DashboardEvent
}

func (n *recordingNotifier) Publish(event DashboardEvent) {
	n.events = append(n.events, event)
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, ErrResourceBusy
}

func newTestReconciliation(t *testing.T) (*ReconciliationService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger, _ := test.NewNullLogger()
	notifier := &recordingNotifier{}
	svc := NewReconciliationService(repository.NewGormStore(db), nil, notifier, NewMetrics(prometheus.NewRegistry()), logger)
	return svc, db, notifier
}

func reloadPart(t *testing.T, db *gorm.DB, id uint) models.Part {
	t.Helper()
	var part models.Part
	require.NoError(t, db.First(&part, id).Error)
	return part
}

func ledgerRow(t *testing.T, db *gorm.DB, divisionID, partID uint) *models.DivisionLedgerRow {
	t.Helper()
	var row models.DivisionLedgerRow
	err := db.Where("division_id = ? AND part_id = ?", divisionID, partID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &row
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestRecordDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("Поступление увеличивает остаток и покрытие", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "1", "5")

		result, err := svc.RecordDelivery(ctx, DeliveryInput{
			PartNumber:       "P1",
			QuantityReceived: testutil.Dec("10"),
			DateReceived:     time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.NotNil(t, result.Part)
		assert.Equal(t, part.ID, *result.Delivery.PartID)
		assert.Equal(t, "Part P1", result.Delivery.PartName)

		reloaded := reloadPart(t, db, part.ID)
		assert.True(t, reloaded.QtyCurrentStock.Equal(testutil.Dec("15")))
		assert.True(t, reloaded.LRVCoverage.Equal(testutil.Dec("15")))
		assert.Equal(t, int64(15), reloaded.CoverageLRVs)

		require.Len(t, notifier.events, 1)
		assert.Equal(t, EventDeliveryRecorded, notifier.events[0].Type)
	})

	t.Run("Неизвестная деталь записывается без связи", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)

		result, err := svc.RecordDelivery(ctx, DeliveryInput{PartNumber: "UNKNOWN", QuantityReceived: testutil.Dec("3")})
		require.NoError(t, err)
		assert.Nil(t, result.Part)
		assert.Nil(t, result.Delivery.PartID)
		assert.Equal(t, int64(1), countRows(t, db, &models.Delivery{}))
	})

	t.Run("Номер детали сравнивается с учетом регистра", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "ABC", "1", "1")

		result, err := svc.RecordDelivery(ctx, DeliveryInput{PartNumber: "abc", QuantityReceived: testutil.Dec("3")})
		require.NoError(t, err)
		assert.Nil(t, result.Part)
		assert.True(t, reloadPart(t, db, part.ID).QtyCurrentStock.Equal(testutil.Dec("1")))
	})

	t.Run("Неположительное количество отклоняется", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)
		testutil.CreatePart(t, db, "P1", "1", "5")

		for _, qty := range []string{"0", "-4"} {
			_, err := svc.RecordDelivery(ctx, DeliveryInput{PartNumber: "P1", QuantityReceived: testutil.Dec(qty)})
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "quantity_received", validationErr.Fields[0].Field)
		}
		assert.Equal(t, int64(0), countRows(t, db, &models.Delivery{}))
		assert.Empty(t, notifier.events)
	})
}

func TestApplyStockAdjustment(t *testing.T) {
	ctx := context.Background()

	t.Run("Увеличение", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "2", "5")

		result, err := svc.ApplyStockAdjustment(ctx, AdjustmentInput{
			PartNumber: "P1", AdjustmentType: models.AdjustmentIncrease, Quantity: testutil.Dec("3"),
			Reason: models.ReasonFound, UserName: "operator",
		})
		require.NoError(t, err)
		assert.Equal(t, "operator", result.Adjustment.UserName)

		reloaded := reloadPart(t, db, part.ID)
		assert.True(t, reloaded.QtyCurrentStock.Equal(testutil.Dec("8")))
		assert.True(t, reloaded.LRVCoverage.Equal(testutil.Dec("4")))
	})

	t.Run("Уменьшение не уводит остаток ниже нуля", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "1", "5")

		_, err := svc.ApplyStockAdjustment(ctx, AdjustmentInput{
			PartNumber: "P1", AdjustmentType: models.AdjustmentDecrease, Quantity: testutil.Dec("100"),
			Reason: models.ReasonDamage,
		})
		require.NoError(t, err)

		reloaded := reloadPart(t, db, part.ID)
		assert.True(t, reloaded.QtyCurrentStock.IsZero())
		assert.True(t, reloaded.LRVCoverage.IsZero())
		assert.Equal(t, int64(1), countRows(t, db, &models.StockAdjustment{}))
	})

	t.Run("Неизвестная деталь", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)

		_, err := svc.ApplyStockAdjustment(ctx, AdjustmentInput{
			PartNumber: "P2", AdjustmentType: models.AdjustmentIncrease, Quantity: testutil.Dec("1"),
			Reason: models.ReasonCorrection,
		})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "P2", notFound.Key)
		assert.Equal(t, int64(0), countRows(t, db, &models.StockAdjustment{}))
		assert.Empty(t, notifier.events)
	})

	t.Run("Неверный тип корректировки", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		testutil.CreatePart(t, db, "P1", "1", "5")

		_, err := svc.ApplyStockAdjustment(ctx, AdjustmentInput{
			PartNumber: "P1", AdjustmentType: "set", Quantity: testutil.Dec("1"), Reason: models.ReasonOther,
		})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestShipKits(t *testing.T) {
	ctx := context.Background()

	t.Run("Отправка списывает склад и пополняет учет площадки", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "3", "10")
		division := testutil.CreateDivision(t, db, "D1")

		result, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 2, UserName: "operator"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Shipment.Reference)
		assert.Equal(t, 1, result.PartsMoved)
		assert.True(t, result.UnitsMoved.Equal(testutil.Dec("6")))

		reloaded := reloadPart(t, db, part.ID)
		assert.True(t, reloaded.QtyCurrentStock.Equal(testutil.Dec("4")))
		assert.True(t, reloaded.QtyShippedOut.Equal(testutil.Dec("6")))
		assert.True(t, reloaded.LRVCoverage.Equal(testutil.Dec("1.3333")))
		assert.Equal(t, int64(1), reloaded.CoverageLRVs)

		row := ledgerRow(t, db, division.ID, part.ID)
		require.NotNil(t, row)
		assert.True(t, row.QtySentToSite.Equal(testutil.Dec("6")))
		assert.True(t, row.QtyUsedOnSite.IsZero())

		var updated models.Division
		require.NoError(t, db.First(&updated, division.ID).Error)
		assert.Equal(t, int64(2), updated.KitsSentToSite)
		assert.Equal(t, int64(1), countRows(t, db, &models.KitShipment{}))
		require.Len(t, notifier.events, 1)
		assert.Equal(t, EventKitsShipped, notifier.events[0].Type)
	})

	t.Run("Повторная отправка накапливает учет", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "1", "10")
		division := testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 2})
		require.NoError(t, err)
		_, err = svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 3})
		require.NoError(t, err)

		assert.True(t, ledgerRow(t, db, division.ID, part.ID).QtySentToSite.Equal(testutil.Dec("5")))
		assert.Equal(t, int64(1), countRows(t, db, &models.DivisionLedgerRow{}))
	})

	t.Run("Нехватка одной детали отменяет всю отправку", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)
		ok := testutil.CreatePart(t, db, "A-OK", "1", "100")
		short := testutil.CreatePart(t, db, "B-SHORT", "5", "9")
		later := testutil.CreatePart(t, db, "C-OK", "1", "100")
		division := testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 2})
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "B-SHORT", stockErr.PartNumber)
		assert.Equal(t, "10", stockErr.Required)

		for _, p := range []*models.Part{ok, short, later} {
			reloaded := reloadPart(t, db, p.ID)
			assert.True(t, reloaded.QtyCurrentStock.Equal(p.QtyCurrentStock), p.PartNumber)
			assert.True(t, reloaded.QtyShippedOut.IsZero(), p.PartNumber)
		}
		assert.Equal(t, int64(0), countRows(t, db, &models.DivisionLedgerRow{}))
		assert.Equal(t, int64(0), countRows(t, db, &models.KitShipment{}))

		var unchanged models.Division
		require.NoError(t, db.First(&unchanged, division.ID).Error)
		assert.Equal(t, int64(0), unchanged.KitsSentToSite)
		assert.Empty(t, notifier.events)
	})

	t.Run("Детали с нулевой потребностью получают строку учета", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P0", "0", "0")
		division := testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 1})
		require.NoError(t, err)
		row := ledgerRow(t, db, division.ID, part.ID)
		require.NotNil(t, row)
		assert.True(t, row.QtySentToSite.IsZero())
	})

	t.Run("Неизвестная площадка", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		testutil.CreatePart(t, db, "P1", "1", "10")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "NOPE", NumKits: 1})
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "division", notFound.Kind)
	})

	t.Run("Количество комплектов должно быть положительным", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 0})
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("Занятая блокировка", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		logger, _ := test.NewNullLogger()
		svc := NewReconciliationService(repository.NewGormStore(db), failingLocker{}, nil, nil, logger)
		testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 1})
		assert.ErrorIs(t, err, ErrResourceBusy)
	})
}

func TestCompleteTrains(t *testing.T) {
	ctx := context.Background()

	t.Run("Нехватка на площадке отменяет операцию", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "3", "10")
		division := testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 2})
		require.NoError(t, err)

		_, err = svc.CompleteTrains(ctx, CompleteTrainsInput{Division: "D1", NumTrains: 3})
		var onSiteErr *InsufficientOnSiteError
		require.ErrorAs(t, err, &onSiteErr)
		assert.Equal(t, "P1", onSiteErr.PartNumber)
		assert.Equal(t, "9", onSiteErr.Required)
		assert.Equal(t, "6", onSiteErr.Remaining)

		row := ledgerRow(t, db, division.ID, part.ID)
		assert.True(t, row.QtyUsedOnSite.IsZero())
		assert.True(t, row.QtySentToSite.Equal(testutil.Dec("6")))
		assert.Equal(t, int64(0), countRows(t, db, &models.TrainCompletion{}))
	})

	t.Run("Завершение расходует учет площадки, не трогая склад", func(t *testing.T) {
		svc, db, notifier := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "3", "10")
		division := testutil.CreateDivision(t, db, "D1")

		_, err := svc.ShipKits(ctx, ShipKitsInput{Division: "D1", NumKits: 2})
		require.NoError(t, err)
		stockAfterShip := reloadPart(t, db, part.ID).QtyCurrentStock

		result, err := svc.CompleteTrains(ctx, CompleteTrainsInput{Division: "D1", NumTrains: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, result.PartsUsed)
		assert.NotEmpty(t, result.Completion.Reference)

		row := ledgerRow(t, db, division.ID, part.ID)
		assert.True(t, row.QtySentToSite.Equal(testutil.Dec("6")))
		assert.True(t, row.QtyUsedOnSite.Equal(testutil.Dec("3")))
		assert.True(t, row.QtyRemaining().Equal(testutil.Dec("3")))
		assert.True(t, reloadPart(t, db, part.ID).QtyCurrentStock.Equal(stockAfterShip))

		var updated models.Division
		require.NoError(t, db.First(&updated, division.ID).Error)
		assert.Equal(t, int64(1), updated.TrainsCompleted)
		assert.Equal(t, EventTrainsCompleted, notifier.events[len(notifier.events)-1].Type)
	})

	t.Run("Без строк учета требуется нулевая потребность", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		testutil.CreatePart(t, db, "P1", "1", "10")
		testutil.CreateDivision(t, db, "D1")

		_, err := svc.CompleteTrains(ctx, CompleteTrainsInput{Division: "D1", NumTrains: 1})
		var onSiteErr *InsufficientOnSiteError
		require.ErrorAs(t, err, &onSiteErr)
		assert.Equal(t, "0", onSiteErr.Remaining)
	})

	t.Run("Остаток на площадке не бывает отрицательным", func(t *testing.T) {
		svc, db, _ := newTestReconciliation(t)
		part := testutil.CreatePart(t, db, "P1", "1", "10")
		division := testutil.CreateDivision(t, db, "D1")
		require.NoError(t, db.Create(&models.DivisionLedgerRow{
			DivisionID:    division.ID,
			PartID:        part.ID,
			QtySentToSite: testutil.Dec("2"),
			QtyUsedOnSite: testutil.Dec("5"),
		}).Error)

		_, err := svc.CompleteTrains(ctx, CompleteTrainsInput{Division: "D1", NumTrains: 1})
		var onSiteErr *InsufficientOnSiteError
		require.ErrorAs(t, err, &onSiteErr)
		assert.Equal(t, "0", onSiteErr.Remaining)
		assert.True(t, ledgerRow(t, db, division.ID, part.ID).QtyRemaining().IsZero())
	})
}

func TestFinishLogsRejections(t *testing.T) {
	db := testutil.NewTestDB(t)
	logger, hook := test.NewNullLogger()
	svc := NewReconciliationService(repository.NewGormStore(db), nil, nil, nil, logger)

	_, err := svc.ApplyStockAdjustment(context.Background(), AdjustmentInput{
		PartNumber: "MISSING", AdjustmentType: models.AdjustmentIncrease, Quantity: testutil.Dec("1"), Reason: models.ReasonOther,
	})
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "apply_adjustment", entry.Data["operation"])
}

func TestPersistenceErrorWrapping(t *testing.T) {
	db := testutil.NewTestDB(t)
	logger, _ := test.NewNullLogger()
	svc := NewReconciliationService(repository.NewGormStore(db), nil, nil, nil, logger)
	testutil.CreatePart(t, db, "P1", "1", "1")

	// Без таблицы журнала запись поступления падает и откатывает изменение остатка
	require.NoError(t, db.Migrator().DropTable(&models.Delivery{}))

	_, err := svc.RecordDelivery(context.Background(), DeliveryInput{PartNumber: "P1", QuantityReceived: testutil.Dec("1")})
	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.Equal(t, "record_delivery", persistence.Op)

	var part models.Part
	require.NoError(t, db.Where("part_number = ?", "P1").First(&part).Error)
	assert.True(t, part.QtyCurrentStock.Equal(testutil.Dec("1")))
}
