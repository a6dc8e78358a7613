package ingestion

import (
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/money"
)

// Classification is the outcome of comparing a paid amount to what a
// transaction expected.
type Classification string

const (
	ClassificationExact       Classification = "exact"
	ClassificationAdjusted    Classification = "adjusted"
	ClassificationOverpayment Classification = "overpayment"
	ClassificationHeld        Classification = "held"
)

// exactToleranceNGN is the absolute-difference band within which a payment
// is treated as an exact match regardless of percentage.
var exactToleranceNGN = decimal.NewFromInt(100)

// adjustedRatioFloor is the minimum paid/expected ratio still eligible for
// proportional scaling instead of being held.
var adjustedRatioFloor = decimal.NewFromFloat(0.95)

// ClassificationResult carries the classification plus the source/fee
// amounts ingestion should persist (identical to the inputs unless the
// classification is adjusted).
type ClassificationResult struct {
	Type                 Classification
	AdjustedSourceAmount decimal.Decimal
	AdjustedFeeAmount    decimal.Decimal
}

// Classify compares a paid amount to the source+fee a transaction expects
// and returns how the payment should be handled.
func Classify(sourceAmount, feeAmount, paid decimal.Decimal) ClassificationResult {
	expected := sourceAmount.Add(feeAmount)
	diff := paid.Sub(expected).Abs()

	if diff.LessThanOrEqual(exactToleranceNGN) {
		return ClassificationResult{Type: ClassificationExact, AdjustedSourceAmount: sourceAmount, AdjustedFeeAmount: feeAmount}
	}

	if paid.GreaterThan(expected) {
		return ClassificationResult{Type: ClassificationOverpayment, AdjustedSourceAmount: sourceAmount, AdjustedFeeAmount: feeAmount}
	}

	if expected.IsZero() {
		return ClassificationResult{Type: ClassificationHeld, AdjustedSourceAmount: sourceAmount, AdjustedFeeAmount: feeAmount}
	}

	ratio := paid.Div(expected)
	if ratio.GreaterThanOrEqual(adjustedRatioFloor) {
		scaled := func(v decimal.Decimal) decimal.Decimal {
			return money.RoundHalfUp(v.Mul(ratio), money.AmountPlaces)
		}
		return ClassificationResult{
			Type:                 ClassificationAdjusted,
			AdjustedSourceAmount: scaled(sourceAmount),
			AdjustedFeeAmount:    scaled(feeAmount),
		}
	}

	return ClassificationResult{Type: ClassificationHeld, AdjustedSourceAmount: sourceAmount, AdjustedFeeAmount: feeAmount}
}
