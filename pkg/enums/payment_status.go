package enums

import "fmt"

// PaymentStatus tracks how much of an order's total has been collected.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPartial,
	PaymentStatusPaid,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// PaymentState tracks the lifecycle of an individual payment row.
type PaymentState string

const (
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

// IsValid reports whether the value is a known PaymentState.
func (p PaymentState) IsValid() bool {
	return p == PaymentStatePaid || p == PaymentStateRefunded
}
