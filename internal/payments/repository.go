package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
)

// Repository persists payments and refunds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error)
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	SumRefundsByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&out).
		Error
	return out, err
}

func (r *repository) ExistsByTransactionID(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumByOrder nets payments against refunds for the order.
func (r *repository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, orderID, nil)
}

// SumRefundsByOrder totals the refunded amount as a positive figure.
func (r *repository) SumRefundsByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	state := enums.PaymentStateRefunded
	total, err := r.sum(ctx, orderID, &state)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Neg(), nil
}

func (r *repository) sum(ctx context.Context, orderID uuid.UUID, state *enums.PaymentState) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID)
	if state != nil {
		query = query.Where("state = ?", *state)
	}

	var total decimal.NullDecimal
	if err := query.Select("SUM(amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
