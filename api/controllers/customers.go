package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/customers"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type createCustomerPayload struct {
	CompanyName string `json:"company_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

type setDiscountPayload struct {
	Percent    decimal.Decimal `json:"percent" validate:"required"`
	ValidUntil *time.Time      `json:"valid_until"`
}

// CustomerCreate registers a new wholesale buyer.
func CustomerCreate(repo *customers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload createCustomerPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer := &models.Customer{
			CompanyName: payload.CompanyName,
			Email:       payload.Email,
		}
		if err := repo.Create(ctx, customer); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

// CustomerDetail returns one customer.
func CustomerDetail(repo *customers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := parseCustomerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := repo.FindByID(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, customer)
	}
}

// CustomerSetDiscount updates the negotiated account discount. The new
// percentage applies to orders priced after this call; existing orders keep
// their locked prices.
func CustomerSetDiscount(repo *customers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := parseCustomerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload setDiscountPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if payload.Percent.IsNegative() || payload.Percent.GreaterThan(decimal.NewFromInt(100)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100"))
			return
		}

		if err := repo.SetDiscount(ctx, customerID, payload.Percent, payload.ValidUntil); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customer, err := repo.FindByID(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, customer)
	}
}

func parseCustomerID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "customerId")
	customerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer id").
			WithDetails(map[string]any{"customer_id": raw})
	}
	return customerID, nil
}
