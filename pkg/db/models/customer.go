package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is the wholesale buyer record with its negotiated discount.
type Customer struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyName        string          `gorm:"column:company_name;not null"`
	Email              string          `gorm:"column:email;not null;unique"`
	DiscountPercent    decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	DiscountValidUntil *time.Time      `gorm:"column:discount_valid_until"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountActiveAt reports whether the negotiated discount applies at the given time.
func (c Customer) DiscountActiveAt(at time.Time) bool {
	if c.DiscountPercent.LessThanOrEqual(decimal.Zero) {
		return false
	}
	return c.DiscountValidUntil == nil || at.Before(*c.DiscountValidUntil)
}
