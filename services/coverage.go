package services

import (
	"bominventory-backend/models"

	"github.com/shopspring/decimal"
)

// coveragePrecision знаков после запятой у lrv_coverage, совпадает с decimal(20,4)
const coveragePrecision = 4

// RecomputeCoverage пересчитывает покрытие детали: stock / qty_per_lrv или 0
func RecomputeCoverage(part *models.Part) {
	if !part.QtyPerLRV.IsPositive() {
		part.LRVCoverage = decimal.Zero
		part.CoverageLRVs = 0
		return
	}
	part.LRVCoverage = part.QtyCurrentStock.DivRound(part.QtyPerLRV, coveragePrecision)
	part.CoverageLRVs = part.QtyCurrentStock.Div(part.QtyPerLRV).Floor().IntPart()
}

// ComputeShortage возвращает нехватку детали для указанного числа LRV
func ComputeShortage(part *models.Part, numUnits int64) (needed, shortage decimal.Decimal) {
	needed = part.QtyPerLRV.Mul(decimal.NewFromInt(numUnits))
	shortage = needed.Sub(part.QtyCurrentStock)
	if shortage.IsNegative() {
		shortage = decimal.Zero
	}
	return needed, shortage
}

// TotalNeededForFleet потребность детали на весь парк
func TotalNeededForFleet(part *models.Part, fleetSize int64) decimal.Decimal {
	return part.QtyPerLRV.Mul(decimal.NewFromInt(fleetSize))
}

// clampNonNegative обрезает отрицательный остаток до нуля
func clampNonNegative(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
