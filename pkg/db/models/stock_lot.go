package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// StockLot represents one receiving event for a product. QuantityRemaining only
// decreases on allocation and increases on restock.
type StockLot struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	QuantityReceived  int             `gorm:"column:quantity_received;not null"`
	QuantityRemaining int             `gorm:"column:quantity_remaining;not null"`
	CostPerUnit       decimal.Decimal `gorm:"column:cost_per_unit;type:numeric(12,4);not null"`
	TotalCost         decimal.Decimal `gorm:"column:total_cost;type:numeric(12,2);not null"`
	PurchaseDate      time.Time       `gorm:"column:purchase_date;not null;index"`
	Supplier          *string         `gorm:"column:supplier"`
	Reference         *string         `gorm:"column:reference"`
	Tags              pq.StringArray  `gorm:"column:tags;type:text[]"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
