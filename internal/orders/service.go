package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/internal/pricing"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productCatalog interface {
	FindPricingView(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type customerStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// Service creates and tracks wholesale orders. Line prices are recomputed
// server-side at creation; any client-supplied price is discarded.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	QuoteLine(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*pricing.Breakdown, error)
}

// CreateInput is the client's view of a new order: products and quantities
// only, never prices.
type CreateInput struct {
	CustomerID      uuid.UUID
	Lines           []LineInput
	ShippingExpense decimal.Decimal
	Notes           string
}

// LineInput requests a quantity of one product.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	tx        txRunner
	repo      Repository
	products  productCatalog
	customers customerStore
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the order service.
func NewService(tx txRunner, repo Repository, products productCatalog, customers customerStore, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		products:  products,
		customers: customers,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	if input.ShippingExpense.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping expense must not be negative")
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, err
	}

	now := s.now()
	discountValid := customer.DiscountActiveAt(now)

	subtotal := decimal.Zero
	discountTotal := decimal.Zero
	linesTotal := decimal.Zero
	lines := make([]models.OrderLine, 0, len(input.Lines))

	for _, lineInput := range input.Lines {
		if lineInput.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").
				WithDetails(map[string]any{"product_id": lineInput.ProductID.String()})
		}
		product, err := s.products.FindPricingView(ctx, lineInput.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": lineInput.ProductID.String()})
			}
			return nil, err
		}

		quote := pricing.Quote(*product, lineInput.Quantity, customer.DiscountPercent, discountValid)
		if !quote.MeetsMinimum {
			return nil, pkgerrors.New(pkgerrors.CodeBelowMOQ, "quantity below minimum order quantity").
				WithDetails(map[string]any{
					"product_id": product.ID.String(),
					"quantity":   lineInput.Quantity,
					"moq":        quote.RequiredMOQ,
				})
		}

		lines = append(lines, models.OrderLine{
			ProductID:      product.ID,
			ProductName:    product.Name,
			SKU:            product.SKU,
			Quantity:       quote.Quantity,
			BaseUnitPrice:  quote.BaseUnitPrice,
			TierPrice:      quote.TierPrice,
			AppliedTierID:  quote.AppliedTierID,
			DiscountAmount: quote.DiscountAmount,
			FinalUnitPrice: quote.FinalUnitPrice,
			FinalLineTotal: quote.FinalTotal,
			TotalSavings:   quote.TotalSavings,
		})
		subtotal = subtotal.Add(quote.Subtotal)
		discountTotal = discountTotal.Add(quote.DiscountAmount)
		linesTotal = linesTotal.Add(quote.FinalTotal)
	}

	order := &models.Order{
		CustomerID:      customer.ID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        subtotal.Round(2),
		DiscountTotal:   discountTotal.Round(2),
		ShippingExpense: input.ShippingExpense.Round(2),
		Total:           linesTotal.Add(input.ShippingExpense).Round(2),
		AmountPaid:      decimal.Zero,
		Lines:           lines,
	}
	if input.Notes != "" {
		notes := input.Notes
		order.Notes = &notes
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		number, err := repo.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return repo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
	})
	s.logg.Info(ctx, "order created")
	return order, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	return s.repo.List(ctx, filter)
}

// allowedTransitions is the plain status graph. Delivery and returns are not
// listed here because they run through the fulfillment and return workflows.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCanceled},
	enums.OrderStatusConfirmed: {enums.OrderStatusInTransit, enums.OrderStatusCanceled},
	enums.OrderStatusInTransit: {enums.OrderStatusDelivered},
}

// UpdateStatus applies a plain workflow transition.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(status)})
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if !transitionAllowed(order.Status, status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
				WithDetails(map[string]any{
					"from": order.Status.String(),
					"to":   status.String(),
				})
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// QuoteLine prices a prospective line without persisting anything.
func (s *service) QuoteLine(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*pricing.Breakdown, error) {
	discountPercent := decimal.Zero
	discountValid := false
	if customerID != uuid.Nil {
		customer, err := s.customers.FindByID(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return nil, err
		}
		discountPercent = customer.DiscountPercent
		discountValid = customer.DiscountActiveAt(s.now())
	}

	product, err := s.products.FindPricingView(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}

	quote := pricing.Quote(*product, quantity, discountPercent, discountValid)
	return &quote, nil
}

func transitionAllowed(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
