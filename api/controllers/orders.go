package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/fulfillment"
	"github.com/emiliomarin/wholesale-backend/internal/orders"
	"github.com/emiliomarin/wholesale-backend/internal/returns"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
	"github.com/emiliomarin/wholesale-backend/pkg/pagination"
	"github.com/emiliomarin/wholesale-backend/pkg/types"
)

type createOrderLinePayload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderPayload struct {
	CustomerID      string                   `json:"customer_id" validate:"required,uuid"`
	Lines           []createOrderLinePayload `json:"lines" validate:"required,min=1,dive"`
	ShippingExpense decimal.Decimal          `json:"shipping_expense"`
	Notes           string                   `json:"notes"`
}

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required"`
	// Reason and Restock only apply when transitioning to returned.
	Reason  string `json:"reason"`
	Restock bool   `json:"restock"`
	// Policy optionally overrides the default allocation policy when the
	// transition triggers fulfillment.
	Policy string `json:"policy"`
}

// OrderCreate prices and persists a new order. Quantities come from the
// client; prices never do.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := uuid.Parse(payload.CustomerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer id"))
			return
		}

		input := orders.CreateInput{
			CustomerID:      customerID,
			ShippingExpense: payload.ShippingExpense,
			Notes:           payload.Notes,
		}
		for _, line := range payload.Lines {
			productID, err := uuid.Parse(line.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
					WithDetails(map[string]any{"product_id": line.ProductID}))
				return
			}
			input.Lines = append(input.Lines, orders.LineInput{ProductID: productID, Quantity: line.Quantity})
		}

		order, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderList returns orders filtered by customer and status.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filter := orders.ListFilter{Limit: limit, Offset: offset}
		customerID, err := validators.ParseQueryUUID(r, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter.CustomerID = customerID
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.OrderStatus(raw)
			if !status.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
				return
			}
			filter.Status = &status
		}

		list, err := svc.List(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteList(w, map[string]any{"orders": list}, types.ListMeta{
			Limit:  limit,
			Offset: offset,
			Count:  len(list),
		})
	}
}

// OrderDetail returns one order with lines and payments.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderUpdateStatus runs the status workflow. A transition to delivered
// triggers fulfillment and a transition to returned triggers the return
// processor; everything else is a plain transition.
func OrderUpdateStatus(svc orders.Service, fulfillSvc fulfillment.Service, returnSvc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := enums.OrderStatus(payload.Status)
		if !status.IsValid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
				WithDetails(map[string]any{"status": payload.Status}))
			return
		}

		switch status {
		case enums.OrderStatusDelivered:
			result, err := fulfillSvc.Complete(ctx, orderID, enums.AllocationPolicy(payload.Policy))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)

		case enums.OrderStatusReturned:
			order, err := returnSvc.Process(ctx, returns.ProcessInput{
				OrderID: orderID,
				Reason:  payload.Reason,
				Restock: payload.Restock,
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, order)

		default:
			order, err := svc.UpdateStatus(ctx, orderID, status)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, order)
		}
	}
}

// OrderFulfill completes fulfillment directly, outside the status workflow.
func OrderFulfill(fulfillSvc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		policy := enums.AllocationPolicy(strings.TrimSpace(r.URL.Query().Get("policy")))
		result, err := fulfillSvc.Complete(ctx, orderID, policy)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// OrderReturn runs the return processor directly.
func OrderReturn(returnSvc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload struct {
			Reason  string `json:"reason"`
			Restock bool   `json:"restock"`
		}
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := returnSvc.Process(ctx, returns.ProcessInput{
			OrderID: orderID,
			Reason:  payload.Reason,
			Restock: payload.Restock,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderQuote prices a prospective line without creating anything.
func OrderQuote(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload struct {
			CustomerID string `json:"customer_id" validate:"omitempty,uuid"`
			ProductID  string `json:"product_id" validate:"required,uuid"`
			Quantity   int    `json:"quantity" validate:"required,min=1"`
		}
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}
		customerID := uuid.Nil
		if payload.CustomerID != "" {
			customerID, err = uuid.Parse(payload.CustomerID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer id"))
				return
			}
		}

		quote, err := svc.QuoteLine(ctx, customerID, productID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id").
			WithDetails(map[string]any{"order_id": raw})
	}
	return orderID, nil
}
