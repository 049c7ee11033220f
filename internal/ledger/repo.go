package ledger

import (
	"context"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ledger entries. Entries are append-only;
// there is no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListBySource(ctx context.Context, sourceType enums.LedgerSourceType, sourceID uuid.UUID) ([]models.LedgerEntry, error)
	ListByFiscalPeriod(ctx context.Context, year, month int, limit, offset int) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListBySource(ctx context.Context, sourceType enums.LedgerSourceType, sourceID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByFiscalPeriod(ctx context.Context, year, month int, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("fiscal_year = ? AND fiscal_month = ?", year, month).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
