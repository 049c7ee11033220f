package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockAllocation is the immutable join record binding one order line to a lot
// it drew from. Rows are written once at fulfillment time and only read after,
// for audit and for reversal on return.
type StockAllocation struct {
	ID                      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LotID                   uuid.UUID       `gorm:"column:lot_id;type:uuid;not null;index"`
	OrderID                 uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	OrderLineID             uuid.UUID       `gorm:"column:order_line_id;type:uuid;not null;index"`
	QuantityFromLot         int             `gorm:"column:quantity_from_lot;not null"`
	CostPerUnitAtAllocation decimal.Decimal `gorm:"column:cost_per_unit_at_allocation;type:numeric(12,4);not null"`
	CreatedAt               time.Time       `gorm:"column:created_at;autoCreateTime"`
}
