package matcher

import "github.com/shopspring/decimal"

// MultiMaxLegs and MultiMinFillPercent are the multi-leg knapsack
// thresholds: at most this many legs, and the assembled total must reach
// at least this percent of the target before the match is accepted.
var (
	MultiMaxLegs        = 10
	MultiMinFillPercent = decimal.NewFromInt(95)
)

// greedyFill tries to fill target with candidates smaller than it, in
// priority order, capping at MultiMaxLegs legs. Returns nil if no viable
// combination reaches MultiMinFillPercent.
func greedyFill(target EntryRef, candidates []EntryRef, used map[int]bool) *MatchDescriptor {
	if !target.Amount.IsPositive() {
		return nil
	}

	var legs []EntryRef
	var legIdx []int
	assembled := decimal.Zero

	for idx, c := range candidates {
		if used[idx] {
			continue
		}
		if !c.Amount.IsPositive() {
			continue
		}
		// A candidate at or above the target belongs to exact matching,
		// not multi-leg assembly.
		if c.Amount.GreaterThanOrEqual(target.Amount) {
			continue
		}

		legs = append(legs, c)
		legIdx = append(legIdx, idx)
		assembled = assembled.Add(c.Amount)

		if len(legs) >= MultiMaxLegs {
			break
		}
		if assembled.GreaterThanOrEqual(target.Amount) {
			break
		}
	}

	if len(legs) == 0 {
		return nil
	}

	fillPct := assembled.Div(target.Amount).Mul(decimal.NewFromInt(100))
	if fillPct.LessThan(MultiMinFillPercent) {
		return nil
	}

	for _, idx := range legIdx {
		used[idx] = true
	}

	matched := assembled
	if target.Amount.LessThan(matched) {
		matched = target.Amount
	}

	return &MatchDescriptor{
		Type:          "multi",
		PoolAEntry:    target,
		PoolBEntries:  legs,
		MatchedAmount: matched,
		LegCount:      len(legs),
		FillPct:       fillPct,
	}
}

// Multi runs the greedy knapsack multi-leg matcher in both directions:
// each poolA entry is tried as a target filled from poolB, then each
// remaining poolB entry is tried as a target filled from poolA. A
// descriptor's PoolAEntry is always the target regardless of which
// physical pool it came from — callers must classify buy/sell from
// EntryRef.Direction, not positional slot.
func Multi(poolA, poolB []EntryRef) []MatchDescriptor {
	usedA := make(map[int]bool, len(poolA))
	usedB := make(map[int]bool, len(poolB))
	var matches []MatchDescriptor

	for i, a := range poolA {
		if usedA[i] {
			continue
		}
		if m := greedyFill(a, poolB, usedB); m != nil {
			usedA[i] = true
			matches = append(matches, *m)
		}
	}

	for j, b := range poolB {
		if usedB[j] {
			continue
		}
		if m := greedyFill(b, poolA, usedA); m != nil {
			usedB[j] = true
			matches = append(matches, *m)
		}
	}

	return matches
}
