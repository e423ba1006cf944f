package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Division представляет площадку установки, получающую комплекты
type Division struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Location        string    `json:"location" gorm:"size:200"`
	KitsSentToSite  int64     `json:"kits_sent_to_site" gorm:"not null;default:0"`
	TrainsCompleted int64     `json:"trains_completed" gorm:"not null;default:0"`
	Notes           string    `json:"notes" gorm:"size:500"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Связи
	LedgerRows []DivisionLedgerRow `json:"-" gorm:"foreignKey:DivisionID;constraint:OnDelete:CASCADE"`
}

// DivisionLedgerRow хранит отправленное и израсходованное количество детали на площадке
type DivisionLedgerRow struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	DivisionID    uint            `json:"division_id" gorm:"not null;uniqueIndex:idx_division_part"`
	PartID        uint            `json:"part_id" gorm:"not null;uniqueIndex:idx_division_part"`
	QtySentToSite decimal.Decimal `json:"qty_sent_to_site" gorm:"column:qty_sent_to_site;type:decimal(20,4);not null;default:0"`
	QtyUsedOnSite decimal.Decimal `json:"qty_used_on_site" gorm:"column:qty_used_on_site;type:decimal(20,4);not null;default:0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// QtyRemaining возвращает остаток на площадке; отрицательное значение обрезается до нуля
func (r *DivisionLedgerRow) QtyRemaining() decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	remaining := r.QtySentToSite.Sub(r.QtyUsedOnSite)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
