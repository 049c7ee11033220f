package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseLines itemizes order-level expenses deducted from gross profit.
type ExpenseLines map[string]decimal.Decimal

// ProfitReport is the one-per-order profit snapshot. Its existence is the
// idempotency guard against a second fulfillment of the same order.
type ProfitReport struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;unique"`
	Revenue      decimal.Decimal `gorm:"column:revenue;type:numeric(12,2);not null"`
	CostOfGoods  decimal.Decimal `gorm:"column:cost_of_goods;type:numeric(12,2);not null"`
	GrossProfit  decimal.Decimal `gorm:"column:gross_profit;type:numeric(12,2);not null"`
	Expenses     ExpenseLines    `gorm:"column:expenses;type:jsonb;serializer:json"`
	NetProfit    decimal.Decimal `gorm:"column:net_profit;type:numeric(12,2);not null"`
	ProfitMargin decimal.Decimal `gorm:"column:profit_margin;type:numeric(5,2);not null"`
	FiscalYear   int             `gorm:"column:fiscal_year;not null"`
	FiscalMonth  int             `gorm:"column:fiscal_month;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
