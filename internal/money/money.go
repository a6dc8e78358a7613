// Package money centralizes the fixed-point decimal conventions used
// across the matching core. All monetary and rate arithmetic is
// deterministic decimal math — floats are only used for priority scores
// (internal/priority), never for money.
package money

import "github.com/shopspring/decimal"

// Decimal place counts for amounts, raw rates, and published quote rates.
const (
	AmountPlaces = 2  // monetary amounts: 18.2 fixed point
	RatePlaces   = 6  // exchange rates: 12.6 fixed point
	QuotedRate   = 4  // rate-engine published rates: 4 dp
)

// RoundAmount quantizes a monetary value to 2 decimal places, half-up.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// RoundHalfUp quantizes to n decimal places using round-half-up.
// decimal.Decimal.Round already rounds half-away-from-zero, which
// coincides with half-up for the non-negative amounts this system deals
// in (adjusted-payment scaling, cached rate quantization).
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// PercentOf returns pct% of amount, e.g. PercentOf(100, 2.5) == 2.5.
func PercentOf(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(decimal.NewFromInt(100))
}

// PercentDiff returns |a-b| / a * 100, the ratio the exact matcher uses to
// decide "close enough". Returns a
// very large sentinel instead of dividing by zero when a is zero.
func PercentDiff(a, b decimal.Decimal) decimal.Decimal {
	if a.IsZero() {
		return decimal.NewFromInt(1_000_000)
	}
	return a.Sub(b).Abs().Div(a).Mul(decimal.NewFromInt(100))
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
