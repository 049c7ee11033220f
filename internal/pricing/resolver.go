package pricing

import (
	"sort"

	"github.com/emiliomarin/wholesale-backend/pkg/db/models"
)

// ResolveTier returns the tier applicable to qty, or nil when no tier matches
// and the caller should fall back to the base wholesale price.
//
// Tiers are scanned in min_quantity descending order and the first band
// covering qty wins, so overlapping bands resolve to the one with the highest
// min_quantity.
func ResolveTier(tiers []models.PriceTier, qty int) *models.PriceTier {
	if len(tiers) == 0 || qty <= 0 {
		return nil
	}

	sorted := make([]models.PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity > sorted[j].MinQuantity
	})

	for i := range sorted {
		if sorted[i].Contains(qty) {
			tier := sorted[i]
			return &tier
		}
	}
	return nil
}
