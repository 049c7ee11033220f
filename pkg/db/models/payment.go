package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/pkg/enums"
)

// Payment records one collected payment (positive amount) or refund (negative
// amount) against an order. TransactionID, when supplied by the payment
// gateway, must be unique across all payments.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method        enums.PaymentMethod `gorm:"column:method;not null;default:'cash'"`
	State         enums.PaymentState  `gorm:"column:state;not null;default:'paid'"`
	TransactionID *string             `gorm:"column:transaction_id;unique"`
	Reason        *string             `gorm:"column:reason"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
