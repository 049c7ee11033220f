package enums

import "fmt"

// LedgerDirection marks a ledger entry as a debit or credit.
type LedgerDirection string

const (
	LedgerDirectionDebit  LedgerDirection = "debit"
	LedgerDirectionCredit LedgerDirection = "credit"
)

// IsValid reports whether the value is a known LedgerDirection.
func (l LedgerDirection) IsValid() bool {
	return l == LedgerDirectionDebit || l == LedgerDirectionCredit
}

// LedgerCategory buckets ledger entries for reporting and reconciliation.
type LedgerCategory string

const (
	LedgerCategoryRevenue   LedgerCategory = "revenue"
	LedgerCategoryCOGS      LedgerCategory = "cogs"
	LedgerCategoryInventory LedgerCategory = "inventory"
	LedgerCategoryReturns   LedgerCategory = "returns"
	LedgerCategoryRefunds   LedgerCategory = "refunds"
)

var validLedgerCategories = []LedgerCategory{
	LedgerCategoryRevenue,
	LedgerCategoryCOGS,
	LedgerCategoryInventory,
	LedgerCategoryReturns,
	LedgerCategoryRefunds,
}

// String implements fmt.Stringer.
func (l LedgerCategory) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LedgerCategory.
func (l LedgerCategory) IsValid() bool {
	for _, candidate := range validLedgerCategories {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLedgerCategory converts raw input into a LedgerCategory.
func ParseLedgerCategory(value string) (LedgerCategory, error) {
	for _, candidate := range validLedgerCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger category %q", value)
}

// LedgerSourceType identifies the business record a ledger entry reconciles to.
type LedgerSourceType string

const (
	LedgerSourceOrder    LedgerSourceType = "order"
	LedgerSourcePayment  LedgerSourceType = "payment"
	LedgerSourceStockLot LedgerSourceType = "stock_lot"
	LedgerSourceRefund   LedgerSourceType = "refund"
)

// IsValid reports whether the value is a known LedgerSourceType.
func (l LedgerSourceType) IsValid() bool {
	switch l {
	case LedgerSourceOrder, LedgerSourcePayment, LedgerSourceStockLot, LedgerSourceRefund:
		return true
	}
	return false
}
