package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceTier captures one quantity band of a product's wholesale tier ladder.
// MaxQuantity is inclusive; nil means the band is unbounded above.
type PriceTier struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	MinQuantity     int             `gorm:"column:min_quantity;not null"`
	MaxQuantity     *int            `gorm:"column:max_quantity"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// Contains reports whether the tier's quantity band covers qty.
func (t PriceTier) Contains(qty int) bool {
	if qty < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || qty <= *t.MaxQuantity
}
