package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Типы корректировок остатка
const (
	AdjustmentIncrease = "increase"
	AdjustmentDecrease = "decrease"
)

// Коды причин корректировки
const (
	ReasonDamage     = "damage"
	ReasonLost       = "lost"
	ReasonFound      = "found"
	ReasonCorrection = "correction"
	ReasonOther      = "other"
)

// Delivery запись о поступлении материала; не изменяется после создания
type Delivery struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	PartNumber       string          `json:"part_number" gorm:"size:128;not null;index"`
	PartName         string          `json:"part_name" gorm:"size:200"`
	Supplier         string          `json:"supplier" gorm:"size:100"`
	QuantityReceived decimal.Decimal `json:"quantity_received" gorm:"type:decimal(20,4);not null"`
	DateReceived     time.Time       `json:"date_received" gorm:"not null;index"`
	DateExpected     *time.Time      `json:"date_expected,omitempty" gorm:"index"`
	Notes            string          `json:"notes" gorm:"size:500"`
	PartID           *uint           `json:"part_id,omitempty" gorm:"index"` // nil, если детали нет в каталоге
	CreatedAt        time.Time       `json:"created_at"`

	// Связи
	Part *Part `json:"part,omitempty" gorm:"foreignKey:PartID;constraint:OnDelete:SET NULL"`
}

// StockAdjustment запись о ручной корректировке остатка
type StockAdjustment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	PartNumber     string          `json:"part_number" gorm:"size:128;not null;index"`
	AdjustmentType string          `json:"adjustment_type" gorm:"size:20;not null"`
	Quantity       decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4);not null"`
	Reason         string          `json:"reason" gorm:"size:200;not null"`
	Notes          string          `json:"notes" gorm:"size:500"`
	UserName       string          `json:"user_name" gorm:"size:100"`
	PartID         *uint           `json:"part_id,omitempty" gorm:"index"`
	CreatedAt      time.Time       `json:"created_at" gorm:"index"`

	// Связи
	Part *Part `json:"part,omitempty" gorm:"foreignKey:PartID;constraint:OnDelete:SET NULL"`
}

// DefectReport запись о дефектных деталях
type DefectReport struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	PartNumber   string          `json:"part_number" gorm:"size:128;not null;index"`
	PartName     string          `json:"part_name" gorm:"size:200"`
	Quantity     decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4);not null"`
	DivisionID   *uint           `json:"division_id,omitempty" gorm:"index"`
	DateReported time.Time       `json:"date_reported" gorm:"not null"`
	Notes        string          `json:"notes" gorm:"size:500"`
	CreatedAt    time.Time       `json:"created_at"`

	// Связи
	Division *Division `json:"division,omitempty" gorm:"foreignKey:DivisionID;constraint:OnDelete:SET NULL"`
}

// KitShipment история отправки комплектов на площадку
type KitShipment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Reference  string    `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	DivisionID uint      `json:"division_id" gorm:"not null;index"`
	NumKits    int64     `json:"num_kits" gorm:"not null"`
	UserName   string    `json:"user_name" gorm:"size:100"`
	CreatedAt  time.Time `json:"created_at"`
}

// TrainCompletion история завершения составов на площадке
type TrainCompletion struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Reference  string    `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	DivisionID uint      `json:"division_id" gorm:"not null;index"`
	NumTrains  int64     `json:"num_trains" gorm:"not null"`
	UserName   string    `json:"user_name" gorm:"size:100"`
	CreatedAt  time.Time `json:"created_at"`
}
