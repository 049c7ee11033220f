package stock

import (
	"context"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists stock lots and allocation rows for one product at a time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLot(ctx context.Context, lot *models.StockLot) error
	ListOpenLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error)
	ListLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error)
	ConsumeLot(ctx context.Context, lotID uuid.UUID, qty int) (bool, error)
	CreateAllocations(ctx context.Context, allocations []models.StockAllocation) error
	ListAllocationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockAllocation, error)
	AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) (bool, error)
	SumRemaining(ctx context.Context, productID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a stock repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLot(ctx context.Context, lot *models.StockLot) error {
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(lot).Error
}

// ListOpenLots returns lots with stock remaining in purchase_date ascending
// order. Every read feeding the consumption loop uses this same ordering;
// FIFO correctness depends on it.
func (r *repository) ListOpenLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error) {
	var lots []models.StockLot
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND quantity_remaining > 0", productID).
		Order("purchase_date ASC, created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repository) ListLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error) {
	var lots []models.StockLot
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("purchase_date ASC, created_at ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// ConsumeLot decrements a lot's remaining quantity with a guard against
// concurrent writers. A false return means another transaction already took
// the stock and the caller must abort.
func (r *repository) ConsumeLot(ctx context.Context, lotID uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockLot{}).
		Where("id = ? AND quantity_remaining >= ?", lotID, qty).
		Update("quantity_remaining", gorm.Expr("quantity_remaining - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateAllocations(ctx context.Context, allocations []models.StockAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	for i := range allocations {
		if allocations[i].ID == uuid.Nil {
			allocations[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}

func (r *repository) ListAllocationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockAllocation, error) {
	var allocations []models.StockAllocation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// AdjustProductStock moves the product's aggregate counter by delta, refusing
// to drive it negative.
func (r *repository) AdjustProductStock(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("stock_quantity >= ?", -delta)
	}
	result := query.Update("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SumRemaining(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.StockLot{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity_remaining), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
