package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service defines operations that record ledger entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error)
	ListBySource(ctx context.Context, sourceType enums.LedgerSourceType, sourceID uuid.UUID) ([]models.LedgerEntry, error)
	ListByFiscalPeriod(ctx context.Context, year, month, limit, offset int) ([]models.LedgerEntry, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordEntryInput captures the immutable data a ledger entry requires. When
// OccurredAt is zero the entry is stamped into the current fiscal period.
type RecordEntryInput struct {
	Direction  enums.LedgerDirection
	Category   enums.LedgerCategory
	Amount     decimal.Decimal
	SourceType enums.LedgerSourceType
	SourceID   uuid.UUID
	Memo       string
	OccurredAt time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), now: s.now}
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error) {
	if !input.Direction.IsValid() {
		return nil, fmt.Errorf("invalid ledger direction %q", input.Direction)
	}
	if !input.Category.IsValid() {
		return nil, fmt.Errorf("invalid ledger category %q", input.Category)
	}
	if !input.SourceType.IsValid() {
		return nil, fmt.Errorf("invalid ledger source type %q", input.SourceType)
	}
	if input.SourceID == uuid.Nil {
		return nil, fmt.Errorf("source id is required")
	}
	if input.Amount.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("ledger amount must not be negative")
	}

	occurred := input.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}

	entry := &models.LedgerEntry{
		Direction:   input.Direction,
		Category:    input.Category,
		Amount:      input.Amount.Round(2),
		SourceType:  input.SourceType,
		SourceID:    input.SourceID,
		FiscalYear:  occurred.Year(),
		FiscalMonth: int(occurred.Month()),
	}
	if input.Memo != "" {
		memo := input.Memo
		entry.Memo = &memo
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListBySource(ctx context.Context, sourceType enums.LedgerSourceType, sourceID uuid.UUID) ([]models.LedgerEntry, error) {
	if sourceID == uuid.Nil {
		return nil, fmt.Errorf("source id is required")
	}
	return s.repo.ListBySource(ctx, sourceType, sourceID)
}

func (s *service) ListByFiscalPeriod(ctx context.Context, year, month, limit, offset int) ([]models.LedgerEntry, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid fiscal month %d", month)
	}
	return s.repo.ListByFiscalPeriod(ctx, year, month, limit, offset)
}
