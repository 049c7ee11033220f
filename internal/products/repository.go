package products

import (
	"context"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes the pricing-side reads for products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindPricingView loads the product with its tier ladder, tiers ordered by
// min_quantity descending for the resolver's scan.
func (r *Repository) FindPricingView(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_quantity DESC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ReplaceTiers replaces the product's tier ladder.
func (r *Repository) ReplaceTiers(ctx context.Context, productID uuid.UUID, tiers []models.PriceTier) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.PriceTier{}).Error; err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	for i := range tiers {
		if tiers[i].ID == uuid.Nil {
			tiers[i].ID = uuid.New()
		}
	}
	return tx.Create(&tiers).Error
}
