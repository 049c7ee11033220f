package reports

import (
	"context"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists per-order profit reports. The unique order_id index is
// what makes fulfillment idempotent, so Create must surface conflicts to the
// caller untranslated.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, report *models.ProfitReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.ProfitReport, error) {
	var report models.ProfitReport
	if err := r.db.WithContext(ctx).First(&report, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ExistsByOrderID reports whether the order already has a profit report.
func (r *Repository) ExistsByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProfitReport{}).
		Where("order_id = ?", orderID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByFiscalPeriod returns all reports whose orders were fulfilled within
// the given year and month.
func (r *Repository) ListByFiscalPeriod(ctx context.Context, year, month int) ([]models.ProfitReport, error) {
	var out []models.ProfitReport
	err := r.db.WithContext(ctx).
		Where("fiscal_year = ? AND fiscal_month = ?", year, month).
		Order("created_at ASC").
		Find(&out).
		Error
	return out, err
}
