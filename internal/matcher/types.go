// Package matcher implements the three pure matching algorithms: Exact,
// Multi, and Partial. All three are pure functions over two
// priority-pre-sorted pool snapshots — they never mutate their inputs and
// never touch the pool store or database.
package matcher

import "github.com/shopspring/decimal"

// EntryRef is a lightweight reference to a pool entry, shaped to avoid a
// dependency from this pure package onto pkg/models or internal/pool —
// callers (internal/matching) map their domain entries in and out.
type EntryRef struct {
	ID           string
	Amount       decimal.Decimal
	Priority     float64
	Direction    string
}

// Remainder describes the unconsumed portion left on each side of a
// partial match.
type Remainder struct {
	PoolAID        string
	PoolARemaining decimal.Decimal
	PoolBID        string
	PoolBRemaining decimal.Decimal
}

// MatchDescriptor is the output of any of the three matcher passes.
type MatchDescriptor struct {
	Type           string // "exact", "multi", "partial"
	PoolAEntry     EntryRef
	PoolBEntry     EntryRef   // set for exact/partial
	PoolBEntries   []EntryRef // set for multi (the legs)
	MatchedAmount  decimal.Decimal
	LegCount       int
	FillPct        decimal.Decimal
	Remainder      *Remainder
}

// ConsumedIDs returns every entry ID this descriptor consumed, from both
// sides, so the orchestrator can scrub snapshots between passes: an entry
// consumed in one pass must be absent from every later pass in the same
// cycle.
func (m MatchDescriptor) ConsumedIDs() []string {
	ids := []string{m.PoolAEntry.ID}
	if m.PoolBEntry.ID != "" {
		ids = append(ids, m.PoolBEntry.ID)
	}
	for _, leg := range m.PoolBEntries {
		ids = append(ids, leg.ID)
	}
	return ids
}
