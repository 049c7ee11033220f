package customers

import (
	"context"
	"time"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository handles customer persistence, including the account-level
// discount used during pricing.
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

// FindByID loads the customer.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create inserts a new customer record.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

// SetDiscount updates the account discount percentage and its optional
// expiry. A nil validUntil keeps the discount open-ended.
func (r *Repository) SetDiscount(ctx context.Context, id uuid.UUID, percent decimal.Decimal, validUntil *time.Time) error {
	updates := map[string]any{
		"discount_percent":     percent,
		"discount_valid_until": validUntil,
	}
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}
