package service

import "github.com/shopspring/decimal"

// NormalizeCents converts a euro amount to integer cents, rounding to
// two decimal places half-up on the decimal value.  Going through
// decimal's shortest-representation parsing keeps inputs like 19.995
// exact, so 19.995 becomes 2000 cents and 19.994 becomes 1999.
func NormalizeCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(2).Shift(2).IntPart()
}

// NormalizeCentsPtr is NormalizeCents lifted over nullable input.
func NormalizeCentsPtr(amount *float64) *int64 {
	if amount == nil {
		return nil
	}
	c := NormalizeCents(*amount)
	return &c
}

// CentsToEuros renders integer cents as a euro amount for responses.
func CentsToEuros(cents int64) float64 {
	return float64(cents) / 100
}

// CentsToEurosPtr is CentsToEuros lifted over nullable input.
func CentsToEurosPtr(cents *int64) *float64 {
	if cents == nil {
		return nil
	}
	v := CentsToEuros(*cents)
	return &v
}
