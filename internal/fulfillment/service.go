package fulfillment

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
	"github.com/emiliomarin/wholesale-backend/internal/reports"
	"github.com/emiliomarin/wholesale-backend/internal/stock"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/metrics"
)

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service completes orders: it allocates stock for every line, writes the
// cost and profit columns, posts the revenue/COGS ledger pair and creates the
// per-order profit report. Everything happens in one transaction so a partial
// fulfillment can never be observed.
type Service interface {
	Complete(ctx context.Context, orderID uuid.UUID, policy enums.AllocationPolicy) (*Result, error)
}

// Result is the outcome of a completed fulfillment.
type Result struct {
	Order  *models.Order        `json:"order"`
	Report *models.ProfitReport `json:"report"`
}

// Params collects the coordinator's dependencies.
type Params struct {
	Tx            txRunner
	OrderRepo     orders.Repository
	ReportRepo    *reports.Repository
	StockSvc      stock.Service
	LedgerSvc     ledger.Service
	Metrics       *metrics.FulfillmentMetrics
	Logger        *logger.Logger
	DefaultPolicy enums.AllocationPolicy
}

type service struct {
	tx            txRunner
	orderRepo     orders.Repository
	reportRepo    *reports.Repository
	stockSvc      stock.Service
	ledgerSvc     ledger.Service
	metrics       *metrics.FulfillmentMetrics
	logg          *logger.Logger
	defaultPolicy enums.AllocationPolicy
	now           func() time.Time
}

// NewService wires the fulfillment coordinator. The metrics recorder may be
// nil.
func NewService(params Params) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.ReportRepo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	if params.StockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if params.LedgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !params.DefaultPolicy.IsValid() {
		params.DefaultPolicy = enums.AllocationPolicyFIFO
	}
	return &service{
		tx:            params.Tx,
		orderRepo:     params.OrderRepo,
		reportRepo:    params.ReportRepo,
		stockSvc:      params.StockSvc,
		ledgerSvc:     params.LedgerSvc,
		metrics:       params.Metrics,
		logg:          params.Logger,
		defaultPolicy: params.DefaultPolicy,
		now:           time.Now,
	}, nil
}

var fulfillableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusInTransit: true,
	enums.OrderStatusDelivered: true,
}

func (s *service) Complete(ctx context.Context, orderID uuid.UUID, policy enums.AllocationPolicy) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if policy == "" {
		policy = s.defaultPolicy
	}
	if !policy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown allocation policy").
			WithDetails(map[string]any{"policy": string(policy)})
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	started := s.now()

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		reportRepo := s.reportRepo.WithTx(tx)
		ledgerSvc := s.ledgerSvc.WithTx(tx)

		order, err := orderRepo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		exists, err := reportRepo.ExistsByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if exists || order.Fulfilled {
			return pkgerrors.New(pkgerrors.CodeAlreadyFulfilled, "order has already been fulfilled").
				WithDetails(map[string]any{"order_id": orderID.String()})
		}
		if !fulfillableStatuses[order.Status] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status does not allow fulfillment").
				WithDetails(map[string]any{
					"order_id": orderID.String(),
					"status":   order.Status.String(),
				})
		}
		if len(order.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no lines to fulfill")
		}

		now := s.now()
		totalCOGS := decimal.Zero
		revenue := decimal.Zero

		for i := range order.Lines {
			line := &order.Lines[i]
			allocation, err := s.stockSvc.Allocate(ctx, tx, stock.AllocationRequest{
				ProductID:   line.ProductID,
				OrderID:     order.ID,
				OrderLineID: line.ID,
				Quantity:    line.Quantity,
				Policy:      policy,
			})
			if err != nil {
				return err
			}
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"product_id": line.ProductID.String(),
				"quantity":   line.Quantity,
				"total_cost": allocation.TotalCost.String(),
			}), "stock allocated")

			lineCost := allocation.TotalCost
			lineProfit := line.FinalLineTotal.Sub(lineCost)
			quantity := decimal.NewFromInt(int64(line.Quantity))

			costPerUnit := allocation.AverageCost
			profitPerUnit := lineProfit.Div(quantity).Round(4)
			totalProfit := lineProfit.Round(2)
			margin := decimal.Zero
			if line.FinalLineTotal.IsPositive() {
				margin = lineProfit.Div(line.FinalLineTotal).Mul(hundred).Round(2)
			}

			line.CostPerUnit = &costPerUnit
			line.TotalCost = &lineCost
			line.ProfitPerUnit = &profitPerUnit
			line.TotalProfit = &totalProfit
			line.ProfitMargin = &margin
			if err := orderRepo.UpdateLineProfit(ctx, line); err != nil {
				return err
			}

			totalCOGS = totalCOGS.Add(lineCost)
			revenue = revenue.Add(line.FinalLineTotal)
		}

		grossProfit := revenue.Sub(totalCOGS)
		netProfit := grossProfit.Sub(order.ShippingExpense)
		margin := decimal.Zero
		if revenue.IsPositive() {
			margin = netProfit.Div(revenue).Mul(hundred).Round(2)
		}

		if _, err := ledgerSvc.Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionCredit,
			Category:   enums.LedgerCategoryRevenue,
			Amount:     revenue.Round(2),
			SourceType: enums.LedgerSourceOrder,
			SourceID:   order.ID,
			Memo:       fmt.Sprintf("revenue for order %d", order.OrderNumber),
			OccurredAt: now,
		}); err != nil {
			return err
		}
		if _, err := ledgerSvc.Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionDebit,
			Category:   enums.LedgerCategoryCOGS,
			Amount:     totalCOGS.Round(2),
			SourceType: enums.LedgerSourceOrder,
			SourceID:   order.ID,
			Memo:       fmt.Sprintf("cost of goods for order %d", order.OrderNumber),
			OccurredAt: now,
		}); err != nil {
			return err
		}

		report := &models.ProfitReport{
			OrderID:      order.ID,
			Revenue:      revenue.Round(2),
			CostOfGoods:  totalCOGS.Round(2),
			GrossProfit:  grossProfit.Round(2),
			Expenses:     models.ExpenseLines{"shipping": order.ShippingExpense},
			NetProfit:    netProfit.Round(2),
			ProfitMargin: margin,
			FiscalYear:   now.Year(),
			FiscalMonth:  int(now.Month()),
		}
		if err := reportRepo.Create(ctx, report); err != nil {
			return err
		}

		if err := orderRepo.MarkFulfilled(ctx, order.ID, now); err != nil {
			return err
		}
		if order.Status != enums.OrderStatusDelivered {
			if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered); err != nil {
				return err
			}
			order.Status = enums.OrderStatusDelivered
		}
		order.Fulfilled = true
		order.FulfilledAt = &now

		result = &Result{Order: order, Report: report}
		return nil
	})

	s.metrics.ObserveDuration("complete", s.now().Sub(started))
	if err != nil {
		s.metrics.IncFailure("complete")
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			s.metrics.IncOversellRejection()
		}
		s.logg.Warn(ctx, "fulfillment failed: "+err.Error())
		return nil, err
	}
	s.metrics.IncSuccess("complete")
	ctx = s.logg.WithFields(ctx, map[string]any{
		"policy":     policy.String(),
		"net_profit": result.Report.NetProfit.String(),
	})
	s.logg.Info(ctx, "order fulfilled")
	return result, nil
}
