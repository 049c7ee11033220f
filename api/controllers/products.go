package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/emiliomarin/wholesale-backend/api/responses"
	"github.com/emiliomarin/wholesale-backend/api/validators"
	"github.com/emiliomarin/wholesale-backend/internal/products"
	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
	pkgerrors "github.com/emiliomarin/wholesale-backend/pkg/errors"
	"github.com/emiliomarin/wholesale-backend/pkg/logger"
)

type tierPayload struct {
	MinQuantity     int             `json:"min_quantity" validate:"required,min=1"`
	MaxQuantity     *int            `json:"max_quantity"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type replaceTiersPayload struct {
	Tiers []tierPayload `json:"tiers" validate:"dive"`
}

// ProductPricing returns the product with its tier ladder.
func ProductPricing(repo *products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := repo.FindPricingView(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ProductReplaceTiers swaps the product's tier ladder. Tiers must be
// quantity-disjoint; overlap is rejected before anything is written.
func ProductReplaceTiers(repo *products.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload replaceTiersPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		tiers := make([]models.PriceTier, 0, len(payload.Tiers))
		for _, tier := range payload.Tiers {
			if tier.MaxQuantity != nil && *tier.MaxQuantity < tier.MinQuantity {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tier max quantity below min quantity"))
				return
			}
			tiers = append(tiers, models.PriceTier{
				ProductID:       productID,
				MinQuantity:     tier.MinQuantity,
				MaxQuantity:     tier.MaxQuantity,
				Price:           tier.Price,
				DiscountPercent: tier.DiscountPercent,
			})
		}
		if err := validateTiersDisjoint(tiers); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := repo.ReplaceTiers(ctx, productID, tiers); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, err := repo.FindPricingView(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func validateTiersDisjoint(tiers []models.PriceTier) error {
	for i := range tiers {
		for j := i + 1; j < len(tiers); j++ {
			if tiersOverlap(tiers[i], tiers[j]) {
				return pkgerrors.New(pkgerrors.CodeValidation, "tier quantity ranges overlap").
					WithDetails(map[string]any{
						"min_quantity_a": tiers[i].MinQuantity,
						"min_quantity_b": tiers[j].MinQuantity,
					})
			}
		}
	}
	return nil
}

func tiersOverlap(a, b models.PriceTier) bool {
	aUnbounded := a.MaxQuantity == nil
	bUnbounded := b.MaxQuantity == nil
	switch {
	case aUnbounded && bUnbounded:
		return true
	case aUnbounded:
		return *b.MaxQuantity >= a.MinQuantity
	case bUnbounded:
		return *a.MaxQuantity >= b.MinQuantity
	default:
		return a.MinQuantity <= *b.MaxQuantity && b.MinQuantity <= *a.MaxQuantity
	}
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "productId")
	productID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").
			WithDetails(map[string]any{"product_id": raw})
	}
	return productID, nil
}
