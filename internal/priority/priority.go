// Package priority implements the pure scoring function that orders the
// matching pool. Two candidate priority formulas were found during design:
// an age/amount/tier formula with weights summing to 1.0, and a second
// age/amount/kyc_label/history variant that was abandoned mid-build and
// never reached parity. This package implements only the former.
package priority

import (
	"github.com/shopspring/decimal"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

const (
	weightAge    = 0.40
	weightAmount = 0.35
	weightTier   = 0.25

	ageCapHours    = 24.0
	amountCapUSD   = 100_000.0
)

// tierScore maps a KYC tier to its fixed contribution; unknown tiers score 0.
func tierScore(tier models.KYCTier) float64 {
	switch tier {
	case models.KYCTier1:
		return 25
	case models.KYCTier2:
		return 60
	case models.KYCTier3:
		return 100
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score computes the composite [0, 100] priority for a pool entry:
//
//	age_score    = min(hoursInPool / 24, 1) * 100
//	amount_score = min(amountUSD / 100_000, 1) * 100
//	tier_score   = {1: 25, 2: 60, 3: 100}[kycTier]   // 0 if unknown
//	priority     = 0.40*age_score + 0.35*amount_score + 0.25*tier_score
//
// hoursInPool and amountUSD are clamped internally; negative inputs are
// treated as zero so a clock skew or malformed upstream value cannot
// produce an out-of-range score.
func Score(hoursInPool float64, amountUSD decimal.Decimal, tier models.KYCTier) float64 {
	if hoursInPool < 0 {
		hoursInPool = 0
	}
	amountFloat, _ := amountUSD.Float64()
	if amountFloat < 0 {
		amountFloat = 0
	}

	ageScore := clamp01(hoursInPool/ageCapHours) * 100
	amountScore := clamp01(amountFloat/amountCapUSD) * 100
	tScore := tierScore(tier)

	total := weightAge*ageScore + weightAmount*amountScore + weightTier*tScore
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}
