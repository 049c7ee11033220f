package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/stock"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type receiveStockPayload struct {
	ProductID    string          `json:"product_id" validate:"required,uuid"`
	Quantity     int             `json:"quantity" validate:"required,min=1"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit" validate:"required"`
	PurchaseDate *time.Time      `json:"purchase_date"`
	Supplier     string          `json:"supplier"`
	Reference    string          `json:"reference"`
	Tags         []string        `json:"tags"`
}

// StockReceive records one purchasing event as a new lot.
func StockReceive(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload receiveStockPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		input := stock.ReceiveInput{
			ProductID:   productID,
			Quantity:    payload.Quantity,
			CostPerUnit: payload.CostPerUnit,
			Supplier:    payload.Supplier,
			Reference:   payload.Reference,
			Tags:        payload.Tags,
		}
		if payload.PurchaseDate != nil {
			input.PurchaseDate = *payload.PurchaseDate
		}

		lot, err := svc.Receive(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, lot)
	}
}

// StockLots lists the lots of one product, oldest purchase first.
func StockLots(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := chi.URLParam(r, "productId")
		productID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
				WithDetails(map[string]any{"product_id": raw}))
			return
		}

		lots, err := svc.ListLots(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"lots": lots})
	}
}

// StockAllocations lists the lot consumption records behind one order.
func StockAllocations(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		allocations, err := svc.ListAllocationsByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"allocations": allocations})
	}
}
