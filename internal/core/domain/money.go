package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a caller-supplied amount string into a strictly
// positive decimal. Amounts travel as strings on the wire so no float
// precision is ever lost.
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// RoundMZN rounds a monetary value to the currency's minor unit
// (2 decimal places, half-up). Applied once at persistence time.
func RoundMZN(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
