package services

import (
	"testing"

	"bominventory-backend/models"
	"bominventory-backend/testutil"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeCoverage(t *testing.T) {
	tests := []struct {
		name      string
		qtyPerLRV string
		stock     string
		coverage  string
		whole     int64
	}{
		{"Целое покрытие", "1", "15", "15", 15},
		{"Дробное покрытие", "3", "10", "3.3333", 3},
		{"Нулевая потребность", "0", "50", "0", 0},
		{"Пустой склад", "4", "0", "0", 0},
		{"Дробная потребность", "0.5", "3", "6", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part := &models.Part{QtyPerLRV: testutil.Dec(tt.qtyPerLRV), QtyCurrentStock: testutil.Dec(tt.stock)}
			RecomputeCoverage(part)
			assert.True(t, part.LRVCoverage.Equal(testutil.Dec(tt.coverage)), "got %s", part.LRVCoverage)
			assert.Equal(t, tt.whole, part.CoverageLRVs)

			// Повторный пересчет ничего не меняет
			first := part.LRVCoverage
			RecomputeCoverage(part)
			assert.True(t, part.LRVCoverage.Equal(first))
		})
	}
}

func TestComputeShortage(t *testing.T) {
	part := &models.Part{QtyPerLRV: testutil.Dec("3"), QtyCurrentStock: testutil.Dec("10")}

	needed, shortage := ComputeShortage(part, 5)
	assert.True(t, needed.Equal(testutil.Dec("15")))
	assert.True(t, shortage.Equal(testutil.Dec("5")))

	needed, shortage = ComputeShortage(part, 2)
	assert.True(t, needed.Equal(testutil.Dec("6")))
	assert.True(t, shortage.IsZero())

	// Расчет не меняет деталь
	assert.True(t, part.QtyCurrentStock.Equal(testutil.Dec("10")))
}

func TestTotalNeededForFleet(t *testing.T) {
	part := &models.Part{QtyPerLRV: testutil.Dec("2")}
	assert.True(t, TotalNeededForFleet(part, 233).Equal(testutil.Dec("466")))
}
