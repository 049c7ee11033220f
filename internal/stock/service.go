package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/ledger"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the stock-lot ledger for products: receiving lots, allocating
// outgoing quantity against them, and restoring stock on returns.
type Service interface {
	Receive(ctx context.Context, input ReceiveInput) (*models.StockLot, error)
	Allocate(ctx context.Context, tx *gorm.DB, req AllocationRequest) (*AllocationResult, error)
	Restore(ctx context.Context, tx *gorm.DB, input RestoreInput) (*models.StockLot, error)
	ListLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error)
	ListAllocationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockAllocation, error)
}

// ReceiveInput describes one purchase/receiving event.
type ReceiveInput struct {
	ProductID    uuid.UUID
	Quantity     int
	CostPerUnit  decimal.Decimal
	PurchaseDate time.Time
	Supplier     string
	Reference    string
	Tags         []string
}

// AllocationRequest asks for quantity to be drawn from one product's lots on
// behalf of one order line.
type AllocationRequest struct {
	ProductID   uuid.UUID
	OrderID     uuid.UUID
	OrderLineID uuid.UUID
	Quantity    int
	Policy      enums.AllocationPolicy
}

// AllocationResult reports the lots consumed and the aggregated cost basis.
type AllocationResult struct {
	Allocations []models.StockAllocation
	Quantity    int
	TotalCost   decimal.Decimal
	AverageCost decimal.Decimal
}

// RestoreInput returns quantity to stock as a fresh lot dated now. The
// original lots are not reinstated because their balances may have been
// allocated to other orders since.
type RestoreInput struct {
	ProductID   uuid.UUID
	Quantity    int
	CostPerUnit decimal.Decimal
	Reference   string
}

type service struct {
	tx     txRunner
	repo   Repository
	ledger ledger.Service
	now    func() time.Time
}

// NewService builds the stock service.
func NewService(tx txRunner, repo Repository, ledgerSvc ledger.Service) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{tx: tx, repo: repo, ledger: ledgerSvc, now: time.Now}, nil
}

func (s *service) Receive(ctx context.Context, input ReceiveInput) (*models.StockLot, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.CostPerUnit.LessThan(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost per unit must not be negative")
	}

	purchaseDate := input.PurchaseDate
	if purchaseDate.IsZero() {
		purchaseDate = s.now()
	}

	lot := &models.StockLot{
		ProductID:         input.ProductID,
		QuantityReceived:  input.Quantity,
		QuantityRemaining: input.Quantity,
		CostPerUnit:       input.CostPerUnit,
		TotalCost:         input.CostPerUnit.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2),
		PurchaseDate:      purchaseDate,
		Tags:              input.Tags,
	}
	if input.Supplier != "" {
		supplier := input.Supplier
		lot.Supplier = &supplier
	}
	if input.Reference != "" {
		reference := input.Reference
		lot.Reference = &reference
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateLot(ctx, lot); err != nil {
			return err
		}
		updated, err := repo.AdjustProductStock(ctx, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		_, err = s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			Direction:  enums.LedgerDirectionDebit,
			Category:   enums.LedgerCategoryInventory,
			Amount:     lot.TotalCost,
			SourceType: enums.LedgerSourceStockLot,
			SourceID:   lot.ID,
			Memo:       fmt.Sprintf("received %d units", input.Quantity),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// Allocate consumes lots inside the caller's transaction. The request either
// fully succeeds or the returned error forces the surrounding transaction to
// roll back; no lot mutation from a failed attempt stays observable.
func (s *service) Allocate(ctx context.Context, tx *gorm.DB, req AllocationRequest) (*AllocationResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation requires a transaction")
	}
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation quantity must be positive")
	}
	if !req.Policy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown allocation policy %q", req.Policy))
	}

	repo := s.repo.WithTx(tx)

	lots, err := repo.ListOpenLots(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, lot := range lots {
		available += lot.QuantityRemaining
	}
	if available < req.Quantity {
		return nil, insufficientStock(req.ProductID, req.Quantity, available)
	}

	var wac decimal.Decimal
	if req.Policy == enums.AllocationPolicyWAC {
		wac = weightedAverageCost(lots)
	}

	remaining := req.Quantity
	allocations := make([]models.StockAllocation, 0, len(lots))
	totalCost := decimal.Zero

	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.QuantityRemaining
		if take > remaining {
			take = remaining
		}

		consumed, err := repo.ConsumeLot(ctx, lot.ID, take)
		if err != nil {
			return nil, err
		}
		if !consumed {
			// A concurrent allocation drained this lot after our read.
			return nil, insufficientStock(req.ProductID, req.Quantity, available)
		}

		costPerUnit := lot.CostPerUnit
		if req.Policy == enums.AllocationPolicyWAC {
			costPerUnit = wac
		}
		allocations = append(allocations, models.StockAllocation{
			LotID:                   lot.ID,
			OrderID:                 req.OrderID,
			OrderLineID:             req.OrderLineID,
			QuantityFromLot:         take,
			CostPerUnitAtAllocation: costPerUnit,
		})
		if req.Policy == enums.AllocationPolicyFIFO {
			totalCost = totalCost.Add(costPerUnit.Mul(decimal.NewFromInt(int64(take))))
		}
		remaining -= take
	}

	quantity := decimal.NewFromInt(int64(req.Quantity))
	if req.Policy == enums.AllocationPolicyWAC {
		totalCost = wac.Mul(quantity)
	}

	if err := repo.CreateAllocations(ctx, allocations); err != nil {
		return nil, err
	}
	updated, err := repo.AdjustProductStock(ctx, req.ProductID, -req.Quantity)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, insufficientStock(req.ProductID, req.Quantity, available)
	}

	return &AllocationResult{
		Allocations: allocations,
		Quantity:    req.Quantity,
		TotalCost:   totalCost.Round(2),
		AverageCost: totalCost.Div(quantity).Round(2),
	}, nil
}

func (s *service) Restore(ctx context.Context, tx *gorm.DB, input RestoreInput) (*models.StockLot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "restore requires a transaction")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	lot := &models.StockLot{
		ProductID:         input.ProductID,
		QuantityReceived:  input.Quantity,
		QuantityRemaining: input.Quantity,
		CostPerUnit:       input.CostPerUnit,
		TotalCost:         input.CostPerUnit.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2),
		PurchaseDate:      s.now(),
	}
	if input.Reference != "" {
		reference := input.Reference
		lot.Reference = &reference
	}
	if err := repo.CreateLot(ctx, lot); err != nil {
		return nil, err
	}
	updated, err := repo.AdjustProductStock(ctx, input.ProductID, input.Quantity)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return lot, nil
}

func (s *service) ListLots(ctx context.Context, productID uuid.UUID) ([]models.StockLot, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.ListLots(ctx, productID)
}

func (s *service) ListAllocationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockAllocation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.ListAllocationsByOrder(ctx, orderID)
}

// weightedAverageCost computes Σ(remaining_i × cost_i) / Σ(remaining_i) over
// the open lots, rounded half-up to 2 decimals. Physical consumption still
// walks lots in purchase_date order so future recalculations stay consistent,
// but every allocation row of a WAC call carries this single value.
func weightedAverageCost(lots []models.StockLot) decimal.Decimal {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, lot := range lots {
		qty := decimal.NewFromInt(int64(lot.QuantityRemaining))
		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(lot.CostPerUnit.Mul(qty))
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalValue.Div(totalQty).Round(2)
}

func insufficientStock(productID uuid.UUID, requested, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("requested %d units, %d available", requested, available),
	).WithDetails(map[string]any{
		"product_id": productID,
		"requested":  requested,
		"available":  available,
	})
}
