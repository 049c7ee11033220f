package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine snapshots one priced line of an order. FinalUnitPrice and
// FinalLineTotal are fixed by the price calculator at order creation.
// CostPerUnit, ProfitPerUnit, TotalProfit, and ProfitMargin stay nil until
// fulfillment populates them exactly once.
type OrderLine struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	ProductName    string           `gorm:"column:product_name;not null"`
	SKU            string           `gorm:"column:sku;not null"`
	Quantity       int              `gorm:"column:quantity;not null"`
	BaseUnitPrice  decimal.Decimal  `gorm:"column:base_unit_price;type:numeric(12,2);not null"`
	TierPrice      decimal.Decimal  `gorm:"column:tier_price;type:numeric(12,2);not null"`
	AppliedTierID  *uuid.UUID       `gorm:"column:applied_tier_id;type:uuid"`
	DiscountAmount decimal.Decimal  `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	FinalUnitPrice decimal.Decimal  `gorm:"column:final_unit_price;type:numeric(12,2);not null"`
	FinalLineTotal decimal.Decimal  `gorm:"column:final_line_total;type:numeric(12,2);not null"`
	TotalSavings   decimal.Decimal  `gorm:"column:total_savings;type:numeric(12,2);not null;default:0"`
	CostPerUnit    *decimal.Decimal `gorm:"column:cost_per_unit;type:numeric(12,4)"`
	TotalCost      *decimal.Decimal `gorm:"column:total_cost;type:numeric(12,2)"`
	ProfitPerUnit  *decimal.Decimal `gorm:"column:profit_per_unit;type:numeric(12,4)"`
	TotalProfit    *decimal.Decimal `gorm:"column:total_profit;type:numeric(12,2)"`
	ProfitMargin   *decimal.Decimal `gorm:"column:profit_margin;type:numeric(5,2)"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
