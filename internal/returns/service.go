package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/internal/orders"
	"github.com/emiliomarin/wholesale-backend/internal/stock"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service reverses fulfillment: restocks returned quantity as fresh lots,
// posts the reversing ledger entry and parks the order in its terminal
// returned state.
type Service interface {
	Process(ctx context.Context, input ProcessInput) (*models.Order, error)
}

// ProcessInput describes one return. When Restock is false the goods are
// written off and no lots are recreated.
type ProcessInput struct {
	OrderID uuid.UUID
	Reason  string
	Restock bool
}

type service struct {
	tx        txRunner
	orderRepo orders.Repository
	stockSvc  stock.Service
	ledgerSvc ledger.Service
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the return processor.
func NewService(tx txRunner, orderRepo orders.Repository, stockSvc stock.Service, ledgerSvc ledger.Service, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		orderRepo: orderRepo,
		stockSvc:  stockSvc,
		ledgerSvc: ledgerSvc,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Process(ctx context.Context, input ProcessInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		ledgerSvc := s.ledgerSvc.WithTx(tx)

		var err error
		order, err = orderRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if order.Status == enums.OrderStatusReturned {
			return pkgerrors.New(pkgerrors.CodeAlreadyReturned, "order has already been returned").
				WithDetails(map[string]any{"order_id": order.ID.String()})
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status does not allow returns").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		if input.Restock {
			for _, line := range order.Lines {
				// Only fulfilled lines carry a cost basis to restock at.
				if line.CostPerUnit == nil {
					continue
				}
				_, err := s.stockSvc.Restore(ctx, tx, stock.RestoreInput{
					ProductID:   line.ProductID,
					Quantity:    line.Quantity,
					CostPerUnit: *line.CostPerUnit,
					Reference:   fmt.Sprintf("return of order %d", order.OrderNumber),
				})
				if err != nil {
					return err
				}
			}
		}

		now := s.now()
		if _, err := ledgerSvc.Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionDebit,
			Category:   enums.LedgerCategoryReturns,
			Amount:     order.Total,
			SourceType: enums.LedgerSourceOrder,
			SourceID:   order.ID,
			Memo:       fmt.Sprintf("return of order %d", order.OrderNumber),
			OccurredAt: now,
		}); err != nil {
			return err
		}

		if err := orderRepo.MarkReturned(ctx, order.ID, now, input.Reason); err != nil {
			return err
		}
		order.Status = enums.OrderStatusReturned
		order.ReturnedAt = &now
		if input.Reason != "" {
			reason := input.Reason
			order.ReturnReason = &reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "restock", input.Restock), "order returned")
	return order, nil
}
