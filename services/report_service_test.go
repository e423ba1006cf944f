package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bominventory-backend/models"
	"bominventory-backend/repository"
	"bominventory-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestReports(t *testing.T) (*ReportService, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewReportService(repository.NewGormStore(db), 5)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	return svc, db
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestReports(t)
	testutil.CreatePart(t, db, "P1", "1", "100")
	testutil.CreatePart(t, db, "P2", "2", "4")
	testutil.CreatePart(t, db, "P3", "1", "0")

	for i := 0; i < 12; i++ {
		require.NoError(t, db.Create(&models.Delivery{
			PartNumber:       "P1",
			QuantityReceived: testutil.Dec("1"),
			DateReceived:     time.Date(2024, 6, 1+i, 0, 0, 0, 0, time.UTC),
		}).Error)
	}

	metrics, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), metrics.TotalParts)
	assert.Equal(t, int64(2), metrics.LowStockCount)
	assert.Equal(t, int64(1), metrics.OutOfStockCount)
	assert.True(t, metrics.TotalStockUnits.Equal(testutil.Dec("104")))
	assert.Len(t, metrics.RecentDeliveries, dashboardRecentDeliveries)
	assert.Equal(t, 12, metrics.RecentDeliveries[0].DateReceived.Day())

	// Самые дефицитные первыми
	require.Len(t, metrics.LowStockItems, 2)
	assert.Equal(t, "P3", metrics.LowStockItems[0].PartNumber)
}

func TestInventoryReportWindow(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestReports(t)
	testutil.CreatePart(t, db, "P1", "1", "0")

	require.NoError(t, db.Create(&models.Delivery{PartNumber: "P1", QuantityReceived: testutil.Dec("1"), DateReceived: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.Delivery{PartNumber: "P1", QuantityReceived: testutil.Dec("1"), DateReceived: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}).Error)

	report, err := svc.InventoryReport(ctx)
	require.NoError(t, err)
	assert.Len(t, report.AllItems, 1)
	assert.Len(t, report.OutOfStockItems, 1)
	assert.Len(t, report.LowStockItems, 1)
	assert.Len(t, report.RecentDeliveries, 1)
}

func TestUpcomingDeliveries(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestReports(t)

	past := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for _, expected := range []*time.Time{&past, &today, &later, nil} {
		require.NoError(t, db.Create(&models.Delivery{
			PartNumber:       "P1",
			QuantityReceived: testutil.Dec("1"),
			DateReceived:     past,
			DateExpected:     expected,
		}).Error)
	}

	upcoming, err := svc.UpcomingDeliveries(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.True(t, upcoming[0].DateExpected.Equal(today))
}

func TestTrainCalculator(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestReports(t)
	testutil.CreatePart(t, db, "A", "1", "100")
	testutil.CreatePart(t, db, "B", "3", "10")
	testutil.CreatePart(t, db, "C", "2", "1")

	t.Run("Все детали, самая большая нехватка первой", func(t *testing.T) {
		result, err := svc.TrainCalculator(ctx, "", 5)
		require.NoError(t, err)
		require.Len(t, result.Lines, 3)
		assert.Equal(t, "C", result.Lines[0].PartNumber)
		assert.True(t, result.Lines[0].Shortage.Equal(testutil.Dec("9")))
		assert.Equal(t, "B", result.Lines[1].PartNumber)
		assert.True(t, result.Lines[1].Shortage.Equal(testutil.Dec("5")))
		assert.True(t, result.Lines[2].CanBuild)
		assert.Equal(t, 2, result.PartsShort)
		assert.True(t, result.TotalShortage.Equal(testutil.Dec("14")))
	})

	t.Run("Одна деталь", func(t *testing.T) {
		result, err := svc.TrainCalculator(ctx, "B", 2)
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.True(t, result.Lines[0].Needed.Equal(testutil.Dec("6")))
		assert.True(t, result.Lines[0].CanBuild)
	})

	t.Run("Границы числа составов", func(t *testing.T) {
		for _, n := range []int64{0, 1001} {
			_, err := svc.TrainCalculator(ctx, "", n)
			var validation *ValidationError
			assert.True(t, errors.As(err, &validation), "num_trains=%d", n)
		}
	})

	t.Run("Неизвестная деталь", func(t *testing.T) {
		_, err := svc.TrainCalculator(ctx, "ZZZ", 1)
		var notFound *NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestLogPages(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestReports(t)
	for i := 0; i < repository.DefaultPerPage+5; i++ {
		require.NoError(t, db.Create(&models.StockAdjustment{
			PartNumber:     "P1",
			AdjustmentType: models.AdjustmentIncrease,
			Quantity:       testutil.Dec("1"),
			Reason:         models.ReasonFound,
		}).Error)
	}

	page, err := svc.ListAdjustments(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(repository.DefaultPerPage+5), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 5)

	deliveries, err := svc.ListDeliveries(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deliveries.Page)
	assert.Empty(t, deliveries.Items)
}
