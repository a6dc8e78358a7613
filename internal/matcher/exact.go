package matcher

import (
	"github.com/shopspring/decimal"
	"github.com/tradeflow-africa/matching-core/internal/money"
)

// ExactTolerancePercent is the "within 0.5%" threshold for a direct match.
var ExactTolerancePercent = decimal.NewFromFloat(0.5)

// Exact pairs each still-unconsumed poolA entry (processed in priority
// order) with the first unconsumed poolB entry whose amount is within
// ExactTolerancePercent of it. Entries with non-positive amounts are
// skipped entirely. Neither input slice is mutated.
func Exact(poolA, poolB []EntryRef) []MatchDescriptor {
	return ExactWithTolerance(poolA, poolB, ExactTolerancePercent)
}

// ExactWithTolerance is Exact parameterized by tolerance, so property
// tests can probe the 0.5%/0.6% boundary directly.
func ExactWithTolerance(poolA, poolB []EntryRef, tolerancePct decimal.Decimal) []MatchDescriptor {
	usedB := make(map[int]bool, len(poolB))
	var matches []MatchDescriptor

	for _, a := range poolA {
		if !a.Amount.IsPositive() {
			continue
		}

		for j, b := range poolB {
			if usedB[j] {
				continue
			}
			if !b.Amount.IsPositive() {
				continue
			}

			diffPct := money.PercentDiff(a.Amount, b.Amount)
			if diffPct.LessThanOrEqual(tolerancePct) {
				matches = append(matches, MatchDescriptor{
					Type:          "exact",
					PoolAEntry:    a,
					PoolBEntry:    b,
					MatchedAmount: money.Min(a.Amount, b.Amount),
				})
				usedB[j] = true
				break
			}
		}
	}

	return matches
}
