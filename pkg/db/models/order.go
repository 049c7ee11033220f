package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/pkg/enums"
)

// Order is the wholesale order header. Revenue-side amounts are locked at
// creation time; profit-side amounts are written once at fulfillment time.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64               `gorm:"column:order_number;not null;unique"`
	CustomerID      uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal   decimal.Decimal     `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	ShippingExpense decimal.Decimal     `gorm:"column:shipping_expense;type:numeric(12,2);not null;default:0"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	AmountPaid      decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	Fulfilled       bool                `gorm:"column:fulfilled;not null;default:false"`
	FulfilledAt     *time.Time          `gorm:"column:fulfilled_at"`
	ReturnedAt      *time.Time          `gorm:"column:returned_at"`
	ReturnReason    *string             `gorm:"column:return_reason"`
	Notes           *string             `gorm:"column:notes"`
	Lines           []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments        []Payment           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BalanceDue returns the amount still owed against the order total.
func (o Order) BalanceDue() decimal.Decimal {
	return o.Total.Sub(o.AmountPaid)
}
