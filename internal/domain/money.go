package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// All monetary amounts in the register are decimal values in the single
// deployment currency (see config.Currency). Sign carries direction:
// positive amounts are revenue, negative amounts are expenses.

// ParseAmount parses a decimal amount from user input.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ErrValidation{Field: "amount", Message: "required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ErrValidation{Field: "amount", Message: "not a valid decimal"}
	}
	return d, nil
}

// MustAmount parses a decimal amount and panics on failure.
// Intended for constants in config defaults and tests.
func MustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
