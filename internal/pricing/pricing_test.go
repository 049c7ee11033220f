package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func testProduct(t *testing.T) models.Product {
	t.Helper()
	tierID := uuid.New()
	return models.Product{
		ID:             uuid.New(),
		SKU:            "WH-001",
		Name:           "Widget",
		WholesalePrice: dec(t, "100"),
		MOQ:            50,
		Tiers: []models.PriceTier{
			{ID: tierID, MinQuantity: 50, MaxQuantity: intPtr(99), Price: dec(t, "80")},
			{ID: uuid.New(), MinQuantity: 100, Price: dec(t, "70")},
		},
	}
}

func intPtr(v int) *int { return &v }

func TestQuoteBelowMOQ(t *testing.T) {
	product := testProduct(t)

	quote := Quote(product, 40, decimal.Zero, false)

	assert.False(t, quote.MeetsMinimum)
	assert.Equal(t, 50, quote.RequiredMOQ)
	assert.True(t, quote.FinalTotal.IsZero())
	assert.Nil(t, quote.AppliedTierID)
}

func TestQuoteAppliesTierAndDiscount(t *testing.T) {
	product := testProduct(t)

	quote := Quote(product, 60, dec(t, "5"), true)

	require.True(t, quote.MeetsMinimum)
	require.NotNil(t, quote.AppliedTierID)
	assert.Equal(t, product.Tiers[0].ID, *quote.AppliedTierID)
	assert.True(t, quote.TierPrice.Equal(dec(t, "80")), "tier price %s", quote.TierPrice)
	assert.True(t, quote.Subtotal.Equal(dec(t, "4800")), "subtotal %s", quote.Subtotal)
	assert.True(t, quote.DiscountAmount.Equal(dec(t, "240")), "discount %s", quote.DiscountAmount)
	assert.True(t, quote.FinalTotal.Equal(dec(t, "4560")), "total %s", quote.FinalTotal)
	assert.True(t, quote.FinalUnitPrice.Equal(dec(t, "76")), "unit %s", quote.FinalUnitPrice)
	// savings measured against the base wholesale price
	assert.True(t, quote.TotalSavings.Equal(dec(t, "1440")), "savings %s", quote.TotalSavings)
}

func TestQuoteIgnoresExpiredDiscount(t *testing.T) {
	product := testProduct(t)

	quote := Quote(product, 60, dec(t, "5"), false)

	assert.True(t, quote.DiscountAmount.IsZero())
	assert.True(t, quote.FinalTotal.Equal(dec(t, "4800")))
}

func TestQuoteUnboundedTopTier(t *testing.T) {
	product := testProduct(t)

	quote := Quote(product, 500, decimal.Zero, false)

	assert.True(t, quote.TierPrice.Equal(dec(t, "70")))
	assert.True(t, quote.FinalTotal.Equal(dec(t, "35000")))
}

func TestQuoteRoundsPersistedAmountsOnly(t *testing.T) {
	product := models.Product{
		ID:             uuid.New(),
		WholesalePrice: dec(t, "19.99"),
		MOQ:            1,
	}

	quote := Quote(product, 7, dec(t, "3.5"), true)

	// 139.93 * 3.5% = 4.89755, rounded half-up when persisted
	assert.True(t, quote.Subtotal.Equal(dec(t, "139.93")), "subtotal %s", quote.Subtotal)
	assert.True(t, quote.DiscountAmount.Equal(dec(t, "4.90")), "discount %s", quote.DiscountAmount)
	assert.True(t, quote.FinalTotal.Equal(dec(t, "135.03")), "total %s", quote.FinalTotal)
	// unit price derives from the unrounded total: 135.03245 / 7
	assert.True(t, quote.FinalUnitPrice.Equal(dec(t, "19.29")), "unit %s", quote.FinalUnitPrice)
}

func TestResolveTierPrefersHighestMinOnOverlap(t *testing.T) {
	low := models.PriceTier{ID: uuid.New(), MinQuantity: 1, Price: dec(t, "95")}
	high := models.PriceTier{ID: uuid.New(), MinQuantity: 50, Price: dec(t, "80")}

	tier := ResolveTier([]models.PriceTier{low, high}, 60)
	require.NotNil(t, tier)
	assert.Equal(t, high.ID, tier.ID)

	tier = ResolveTier([]models.PriceTier{low, high}, 10)
	require.NotNil(t, tier)
	assert.Equal(t, low.ID, tier.ID)
}

func TestResolveTierNoMatch(t *testing.T) {
	tiers := []models.PriceTier{
		{ID: uuid.New(), MinQuantity: 100, Price: dec(t, "70")},
	}

	assert.Nil(t, ResolveTier(tiers, 50))
	assert.Nil(t, ResolveTier(nil, 50))
	assert.Nil(t, ResolveTier(tiers, 0))
}

func TestTierContainsInclusiveBounds(t *testing.T) {
	tier := models.PriceTier{MinQuantity: 50, MaxQuantity: intPtr(99)}

	assert.False(t, tier.Contains(49))
	assert.True(t, tier.Contains(50))
	assert.True(t, tier.Contains(99))
	assert.False(t, tier.Contains(100))
}
