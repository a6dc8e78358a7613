package matcher

import "github.com/shopspring/decimal"

// PartialMinOverlapPercent is the minimum overlap, as a percent of both
// the larger and the smaller side, required before a partial match is
// accepted. Below this threshold the matched slice would be too thin
// relative to the larger side to be worth recording.
var PartialMinOverlapPercent = decimal.NewFromInt(10)

// overlapPct returns min(a,b)/max(a,b) * 100.
func overlapPct(a, b decimal.Decimal) decimal.Decimal {
	lo, hi := a, b
	if hi.LessThan(lo) {
		lo, hi = hi, lo
	}
	if hi.IsZero() {
		return decimal.Zero
	}
	return lo.Div(hi).Mul(decimal.NewFromInt(100))
}

// Partial pairs each still-unconsumed poolA entry, in priority order,
// with the first unconsumed poolB entry whose overlap reaches
// PartialMinOverlapPercent of both amounts. The matched amount is
// min(a, b); whichever side is larger keeps a Remainder describing what's
// left over. Neither input slice is mutated.
func Partial(poolA, poolB []EntryRef) []MatchDescriptor {
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

			if overlapPct(a.Amount, b.Amount).LessThan(PartialMinOverlapPercent) {
				continue
			}

			matched := a.Amount
			if b.Amount.LessThan(matched) {
				matched = b.Amount
			}

			var remainder *Remainder
			if !a.Amount.Equal(b.Amount) {
				remainder = &Remainder{
					PoolAID:        a.ID,
					PoolARemaining: a.Amount.Sub(matched),
					PoolBID:        b.ID,
					PoolBRemaining: b.Amount.Sub(matched),
				}
			}

			matches = append(matches, MatchDescriptor{
				Type:          "partial",
				PoolAEntry:    a,
				PoolBEntry:    b,
				MatchedAmount: matched,
				Remainder:     remainder,
			})
			usedB[j] = true
			break
		}
	}

	return matches
}
