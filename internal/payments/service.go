package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/internal/orders"
	"github.com/emiliomarin/wholesale-backend/pkg/db"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

// overpayTolerance absorbs sub-cent gateway rounding on the final payment.
var overpayTolerance = decimal.NewFromFloat(0.01)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the payment ledger for orders. It touches only the order's
// total/paid fields, never pricing or stock.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error)
	ProcessRefund(ctx context.Context, input RefundInput) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
}

// RecordPaymentInput describes one collected payment.
type RecordPaymentInput struct {
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	Method        enums.PaymentMethod
	TransactionID string
}

// RefundInput describes one refund against an order's paid sum.
type RefundInput struct {
	OrderID uuid.UUID
	Amount  decimal.Decimal
	Reason  string
}

type service struct {
	tx        txRunner
	repo      Repository
	orderRepo orders.Repository
	ledgerSvc ledger.Service
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the payment ledger.
func NewService(tx txRunner, repo Repository, orderRepo orders.Repository, ledgerSvc ledger.Service, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		orderRepo: orderRepo,
		ledgerSvc: ledgerSvc,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPaymentAmount, "payment amount must be positive").
			WithDetails(map[string]any{"amount": input.Amount.String()})
	}
	if input.Method == "" {
		input.Method = enums.PaymentMethodCash
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"method": string(input.Method)})
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)
		ledgerSvc := s.ledgerSvc.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		balance := order.BalanceDue()
		if input.Amount.GreaterThan(balance.Add(overpayTolerance)) {
			return pkgerrors.New(pkgerrors.CodeInvalidPaymentAmount, "payment exceeds balance due").
				WithDetails(map[string]any{
					"amount":      input.Amount.String(),
					"balance_due": balance.String(),
				})
		}

		if input.TransactionID != "" {
			used, err := repo.ExistsByTransactionID(ctx, input.TransactionID)
			if err != nil {
				return err
			}
			if used {
				return duplicateTransaction(input.TransactionID)
			}
		}

		payment = &models.Payment{
			OrderID: order.ID,
			Amount:  input.Amount.Round(2),
			Method:  input.Method,
			State:   enums.PaymentStatePaid,
		}
		if input.TransactionID != "" {
			txnID := input.TransactionID
			payment.TransactionID = &txnID
		}
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return duplicateTransaction(input.TransactionID)
			}
			return err
		}

		if _, err := ledgerSvc.Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionCredit,
			Category:   enums.LedgerCategoryRevenue,
			Amount:     payment.Amount,
			SourceType: enums.LedgerSourcePayment,
			SourceID:   payment.ID,
			Memo:       fmt.Sprintf("payment for order %d", order.OrderNumber),
			OccurredAt: s.now(),
		}); err != nil {
			return err
		}

		newPaid := order.AmountPaid.Add(payment.Amount)
		return orderRepo.ApplyPayment(ctx, order.ID, newPaid, paymentStatusFor(newPaid, order.Total))
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "amount", payment.Amount.String()), "payment recorded")
	return payment, nil
}

func (s *service) ProcessRefund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPaymentAmount, "refund amount must be positive").
			WithDetails(map[string]any{"amount": input.Amount.String()})
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var refund *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)
		ledgerSvc := s.ledgerSvc.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		refunded, err := repo.SumRefundsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		// AmountPaid is already net of prior refunds, so it bounds what can
		// still be handed back.
		if input.Amount.GreaterThan(order.AmountPaid) {
			return pkgerrors.New(pkgerrors.CodeRefundExceedsPaid, "refund exceeds amount paid").
				WithDetails(map[string]any{
					"amount":     input.Amount.String(),
					"refundable": order.AmountPaid.String(),
				})
		}

		amount := input.Amount.Round(2)
		refund = &models.Payment{
			OrderID: order.ID,
			Amount:  amount.Neg(),
			Method:  enums.PaymentMethodCash,
			State:   enums.PaymentStateRefunded,
		}
		if input.Reason != "" {
			reason := input.Reason
			refund.Reason = &reason
		}
		if err := repo.Create(ctx, refund); err != nil {
			return err
		}

		if _, err := ledgerSvc.Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionDebit,
			Category:   enums.LedgerCategoryRefunds,
			Amount:     amount,
			SourceType: enums.LedgerSourceRefund,
			SourceID:   refund.ID,
			Memo:       fmt.Sprintf("refund for order %d", order.OrderNumber),
			OccurredAt: s.now(),
		}); err != nil {
			return err
		}

		newPaid := order.AmountPaid.Sub(amount)
		if err := orderRepo.ApplyPayment(ctx, order.ID, newPaid, paymentStatusFor(newPaid, order.Total)); err != nil {
			return err
		}

		// A full refund parks the order in a terminal refunded state.
		if refunded.Add(amount).GreaterThanOrEqual(order.Total) {
			return orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusRefunded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "amount", refund.Amount.String()), "refund processed")
	return refund, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func paymentStatusFor(paid, total decimal.Decimal) enums.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total) && total.IsPositive():
		return enums.PaymentStatusPaid
	case paid.IsPositive():
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusPending
	}
}

func duplicateTransaction(transactionID string) error {
	return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction already recorded").
		WithDetails(map[string]any{"transaction_id": transactionID})
}
