package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/pkg/enums"
)

// LedgerEntry is an append-only bookkeeping record. Matched debit/credit pairs
// are written in the same transaction as the business event that causes them.
type LedgerEntry struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Direction   enums.LedgerDirection  `gorm:"column:direction;not null"`
	Category    enums.LedgerCategory   `gorm:"column:category;not null;index"`
	Amount      decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	SourceType  enums.LedgerSourceType `gorm:"column:source_type;not null"`
	SourceID    uuid.UUID              `gorm:"column:source_id;type:uuid;not null;index"`
	FiscalYear  int                    `gorm:"column:fiscal_year;not null"`
	FiscalMonth int                    `gorm:"column:fiscal_month;not null"`
	Memo        *string                `gorm:"column:memo"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
