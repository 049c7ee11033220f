// Package env reads ad-hoc environment overrides that sit outside the main
// envconfig-driven configuration, such as the PORT variable injected by
// container platforms.
package env

import (
	"os"
	"strings"
)

// Get returns the variable's value, or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
