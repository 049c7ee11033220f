package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents the canonical wholesale listing with its pricing view.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU            string          `gorm:"column:sku;not null;unique"`
	Name           string          `gorm:"column:name;not null"`
	Description    *string         `gorm:"column:description"`
	WholesalePrice decimal.Decimal `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	MOQ            int             `gorm:"column:moq;not null;default:1"`
	StockQuantity  int             `gorm:"column:stock_quantity;not null;default:0"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	Tiers          []PriceTier     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
