package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// Breakdown is the authoritative price computation for one order line. It is
// recomputed server-side at order creation; client-submitted prices are never
// trusted.
type Breakdown struct {
	MeetsMinimum    bool            `json:"meets_minimum"`
	RequiredMOQ     int             `json:"required_moq"`
	Quantity        int             `json:"quantity"`
	BaseUnitPrice   decimal.Decimal `json:"base_unit_price"`
	TierPrice       decimal.Decimal `json:"tier_price"`
	AppliedTierID   *uuid.UUID      `json:"applied_tier_id,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	FinalUnitPrice  decimal.Decimal `json:"final_unit_price"`
	TotalSavings    decimal.Decimal `json:"total_savings"`
}

// Quote prices qty units of product, applying the tier ladder and, when
// discountValid, the customer's negotiated percentage.
//
// Quantities below the product MOQ yield MeetsMinimum=false with zero prices;
// that line must be rejected outright, never rounded up. Intermediate amounts
// are kept at full precision and only the persisted totals are rounded
// half-up to 2 decimals.
func Quote(product models.Product, qty int, discountPercent decimal.Decimal, discountValid bool) Breakdown {
	breakdown := Breakdown{
		RequiredMOQ:   product.MOQ,
		Quantity:      qty,
		BaseUnitPrice: product.WholesalePrice,
	}

	if qty < product.MOQ || qty <= 0 {
		return breakdown
	}
	breakdown.MeetsMinimum = true

	tierPrice := product.WholesalePrice
	if tier := ResolveTier(product.Tiers, qty); tier != nil {
		tierPrice = tier.Price
		tierID := tier.ID
		breakdown.AppliedTierID = &tierID
	}
	breakdown.TierPrice = tierPrice

	quantity := decimal.NewFromInt(int64(qty))
	subtotal := tierPrice.Mul(quantity)
	breakdown.Subtotal = subtotal.Round(2)

	discountAmount := decimal.Zero
	if discountValid && discountPercent.GreaterThan(decimal.Zero) {
		breakdown.DiscountPercent = discountPercent
		discountAmount = subtotal.Mul(discountPercent).Div(hundred)
	}
	breakdown.DiscountAmount = discountAmount.Round(2)

	finalTotal := subtotal.Sub(discountAmount)
	breakdown.FinalTotal = finalTotal.Round(2)
	breakdown.FinalUnitPrice = finalTotal.Div(quantity).Round(2)
	breakdown.TotalSavings = product.WholesalePrice.Mul(quantity).Sub(finalTotal).Round(2)

	return breakdown
}
