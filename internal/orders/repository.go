package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
)

// Repository defines persistence for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	NextOrderNumber(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
	MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time, reason string) error
	UpdateLineProfit(ctx context.Context, line *models.OrderLine) error
	ApplyPayment(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal, status enums.PaymentStatus) error
}

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Offset     int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order repository on the given GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&order, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Order("order_number DESC")
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var out []models.Order
	if err := query.Preload("Lines").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// NextOrderNumber returns the next sequential order number. Call it inside
// the creation transaction so the unique index resolves races.
func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&max).
		Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *repository) MarkFulfilled(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fulfilled":    true,
			"fulfilled_at": at,
		}).
		Error
}

func (r *repository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.OrderStatusReturned,
			"returned_at":   at,
			"return_reason": reason,
		}).
		Error
}

// UpdateLineProfit writes the cost and profit columns populated at
// fulfillment time. Price columns are never touched here.
func (r *repository) UpdateLineProfit(ctx context.Context, line *models.OrderLine) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"cost_per_unit":   line.CostPerUnit,
			"total_cost":      line.TotalCost,
			"profit_per_unit": line.ProfitPerUnit,
			"total_profit":    line.TotalProfit,
			"profit_margin":   line.ProfitMargin,
		}).
		Error
}

func (r *repository) ApplyPayment(ctx context.Context, id uuid.UUID, amountPaid decimal.Decimal, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"amount_paid":    amountPaid,
			"payment_status": status,
		}).
		Error
}
