package enums

import "fmt"

// AllocationPolicy selects the cost basis used when consuming stock lots.
type AllocationPolicy string

const (
	AllocationPolicyFIFO AllocationPolicy = "fifo"
	AllocationPolicyWAC  AllocationPolicy = "wac"
)

// String implements fmt.Stringer.
func (a AllocationPolicy) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AllocationPolicy.
func (a AllocationPolicy) IsValid() bool {
	return a == AllocationPolicyFIFO || a == AllocationPolicyWAC
}

// ParseAllocationPolicy converts raw input into an AllocationPolicy.
func ParseAllocationPolicy(value string) (AllocationPolicy, error) {
	switch AllocationPolicy(value) {
	case AllocationPolicyFIFO:
		return AllocationPolicyFIFO, nil
	case AllocationPolicyWAC:
		return AllocationPolicyWAC, nil
	}
	return "", fmt.Errorf("invalid allocation policy %q", value)
}
