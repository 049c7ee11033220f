package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/payments"
	"github.com/emiliomarin/wholesale-backend/pkg/enums"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type recordPaymentPayload struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
}

type refundPayload struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Reason string          `json:"reason"`
}

// PaymentRecord appends a payment against an order. Duplicate transaction
// submissions resolve to a DUPLICATE_TRANSACTION error so webhook retries can
// distinguish them from real failures.
func PaymentRecord(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload recordPaymentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method := enums.PaymentMethodCash
		if payload.Method != "" {
			method, err = enums.ParsePaymentMethod(payload.Method)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
				return
			}
		}

		payment, err := svc.RecordPayment(ctx, payments.RecordPaymentInput{
			OrderID:       orderID,
			Amount:        payload.Amount,
			Method:        method,
			TransactionID: payload.TransactionID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// PaymentRefund hands money back against an order's paid sum.
func PaymentRefund(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload refundPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		refund, err := svc.ProcessRefund(ctx, payments.RefundInput{
			OrderID: orderID,
			Amount:  payload.Amount,
			Reason:  payload.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refund)
	}
}

// PaymentList returns the payment history for an order.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.ListByOrder(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"payments": list})
	}
}
