package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseMinor converts a decimal amount string ("12.50") into minor units.
func ParseMinor(input string) (int64, error) {
	parsed, err := decimal.NewFromString(input)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if parsed.Exponent() < -2 {
		return 0, ErrTooManyDecimals
	}
	minor := parsed.Mul(decimal.NewFromInt(100))
	if !minor.IsInteger() {
		return 0, ErrTooManyDecimals
	}
	return minor.IntPart(), nil
}

// FormatMinor renders minor units as a fixed two-decimal string.
func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	formatted := fmt.Sprintf("%d.%02d", value/100, value%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}
