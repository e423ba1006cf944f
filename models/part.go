package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Типы деталей
const (
	PartTypeEssential   = "Essential"
	PartTypeConsumables = "Consumables"
)

// Part представляет позицию основного BOM-каталога
type Part struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PartNumber  string `json:"part_number" gorm:"size:128;not null;uniqueIndex"`
	PartName    string `json:"part_name" gorm:"size:200"`
	Supplier    string `json:"supplier" gorm:"size:100;index"`
	Description string `json:"description" gorm:"size:500"` // используется как тег компонента
	Type        string `json:"type" gorm:"size:32;not null;default:Essential"`

	QtyPerLRV           decimal.Decimal `json:"qty_per_lrv" gorm:"column:qty_per_lrv;type:decimal(20,4);not null;default:0"`
	QtyCurrentStock     decimal.Decimal `json:"qty_current_stock" gorm:"column:qty_current_stock;type:decimal(20,4);not null;default:0"`
	QtyShippedOut       decimal.Decimal `json:"qty_shipped_out" gorm:"column:qty_shipped_out;type:decimal(20,4);not null;default:0"`
	QtyBackOrdered      decimal.Decimal `json:"qty_back_ordered" gorm:"column:qty_back_ordered;type:decimal(20,4);not null;default:0"`
	BackOrderInfo       string          `json:"back_order_info" gorm:"size:500"`
	TotalNeededForFleet decimal.Decimal `json:"total_needed_for_fleet" gorm:"column:total_needed_for_fleet;type:decimal(20,4);not null;default:0"`

	// Производные поля, пересчитываются после каждой операции со складом
	LRVCoverage  decimal.Decimal `json:"lrv_coverage" gorm:"column:lrv_coverage;type:decimal(20,4);not null;default:0;index"`
	CoverageLRVs int64           `json:"coverage_lrvs" gorm:"column:coverage_lrvs;not null;default:0"`

	Notes     string    `json:"notes" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Связи
	LedgerRows []DivisionLedgerRow `json:"-" gorm:"foreignKey:PartID;constraint:OnDelete:CASCADE"`
}

// Component возвращает тег компонента детали
func (p *Part) Component() string {
	return p.Description
}
