package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/fsm"
	"github.com/tradeflow-africa/matching-core/internal/matcher"
	"github.com/tradeflow-africa/matching-core/internal/money"
	"github.com/tradeflow-africa/matching-core/internal/pool"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

const lockName = "matching_cycle"

// Config bundles the orchestrator's tunables; a zero LockTTL falls back to
// the default.
type Config struct {
	LockTTL time.Duration
}

// Orchestrator runs one matching cycle at a time: snapshot both currency
// lanes, run exact then multi then partial over what's left, persist
// whatever each pass produced, and write back the pool's new shape.
type Orchestrator struct {
	store    Store
	snapshot PoolSnapshotter
	mutate   PoolMutator
	locker   Locker
	rates    RateSource
	notifier Dispatcher
	lockTTL  time.Duration
	now      func() time.Time
}

// New wires an Orchestrator from its collaborators.
func New(store Store, snapshot PoolSnapshotter, mutate PoolMutator, locker Locker, rateSource RateSource, notifier Dispatcher, cfg Config) *Orchestrator {
	ttl := cfg.LockTTL
	if ttl == 0 {
		ttl = 4 * time.Minute
	}
	return &Orchestrator{
		store:    store,
		snapshot: snapshot,
		mutate:   mutate,
		locker:   locker,
		rates:    rateSource,
		notifier: notifier,
		lockTTL:  ttl,
		now:      time.Now,
	}
}

// RunCycle executes one full matching pass. If the lock is already held by
// another process, it returns (nil, nil) — not an error — so the scheduler
// can treat an overlapping trigger as a clean skip.
func (o *Orchestrator) RunCycle(ctx context.Context) (*CycleSummary, error) {
	now := o.now()
	cycleID := fmt.Sprintf("MC-%s", now.Format("20060102-1504"))

	token, err := o.locker.AcquireLock(ctx, lockName, o.lockTTL)
	if err != nil {
		if errors.Is(err, pool.ErrLockHeld) {
			return nil, nil
		}
		return nil, fmt.Errorf("matching: acquire cycle lock: %w", err)
	}
	defer func() {
		if err := o.locker.Release(ctx, lockName, token); err != nil {
			log.Printf("[Matching] failed to release cycle lock %s: %v", cycleID, err)
		}
	}()

	ngnEntries, err := o.snapshot.Snapshot(ctx, models.DirectionNGNToCNY, "NGN")
	if err != nil {
		return nil, fmt.Errorf("matching: snapshot ngn lane: %w", err)
	}
	cnyEntries, err := o.snapshot.Snapshot(ctx, models.DirectionCNYToNGN, "CNY")
	if err != nil {
		return nil, fmt.Errorf("matching: snapshot cny lane: %w", err)
	}

	summary := &CycleSummary{
		CycleID:            cycleID,
		StartedAt:          now,
		PoolSizeStartBuy:   len(ngnEntries),
		PoolSizeStartSell:  len(cnyEntries),
		PoolSizeStartTotal: len(ngnEntries) + len(cnyEntries),
		TotalMatched:       decimal.Zero,
		MatchingEfficiency: decimal.Zero,
	}

	byID := make(map[string]*models.PoolEntry, len(ngnEntries)+len(cnyEntries))
	for _, e := range ngnEntries {
		byID[e.ID] = e
	}
	for _, e := range cnyEntries {
		byID[e.ID] = e
	}

	consumed := make(map[string]bool)

	if len(ngnEntries) == 0 || len(cnyEntries) == 0 {
		log.Printf("[Matching] cycle %s: nothing to match (ngn=%d cny=%d)", cycleID, len(ngnEntries), len(cnyEntries))
	} else {
		current, err := o.rates.GetRates(ctx)
		if err != nil {
			return nil, fmt.Errorf("matching: load current rates: %w", err)
		}

		ngnRefs := toRefs(ngnEntries, func(e *models.PoolEntry) decimal.Decimal {
			return toCNY(e.SourceAmount, current.NGNPerCNY)
		})
		cnyRefs := toRefs(cnyEntries, func(e *models.PoolEntry) decimal.Decimal {
			return e.SourceAmount
		})

		var descriptors []matcher.MatchDescriptor

		runPass := func(matchType string, fn func(a, b []matcher.EntryRef) []matcher.MatchDescriptor) {
			a := filterConsumed(ngnRefs, consumed)
			b := filterConsumed(cnyRefs, consumed)
			out := fn(a, b)
			for _, d := range out {
				descriptors = append(descriptors, d)
				for _, id := range d.ConsumedIDs() {
					consumed[id] = true
				}
				switch matchType {
				case "exact":
					summary.ExactCount++
				case "multi":
					summary.MultiCount++
				case "partial":
					summary.PartialCount++
				}
			}
		}

		runPass("exact", matcher.Exact)
		runPass("multi", matcher.Multi)
		runPass("partial", matcher.Partial)

		for _, d := range descriptors {
			matched, err := o.applyDescriptor(ctx, cycleID, d, byID, current.NGNPerCNY, now)
			if err != nil {
				return nil, fmt.Errorf("matching: apply %s match: %w", d.Type, err)
			}
			summary.TotalMatched = summary.TotalMatched.Add(matched)
		}
	}

	timeouts, err := o.sweepTimeouts(ctx, ngnEntries, cnyEntries, consumed, now)
	if err != nil {
		return nil, fmt.Errorf("matching: timeout sweep: %w", err)
	}
	summary.Timeouts = timeouts

	if summary.PoolSizeStartTotal > 0 {
		summary.MatchingEfficiency = decimal.NewFromInt(int64(len(consumed))).
			Div(decimal.NewFromInt(int64(summary.PoolSizeStartTotal))).
			Mul(decimal.NewFromInt(100))
	}

	summary.CompletedAt = o.now()
	summary.DurationMs = summary.CompletedAt.Sub(summary.StartedAt).Milliseconds()

	if err := o.store.SaveCycleReport(ctx, *summary); err != nil {
		return nil, err
	}

	log.Printf("[Matching] cycle %s complete: exact=%d multi=%d partial=%d timeouts=%d total=%s",
		cycleID, summary.ExactCount, summary.MultiCount, summary.PartialCount, summary.Timeouts, summary.TotalMatched)

	return summary, nil
}

// sweepTimeouts expires every still-active, unmatched entry whose
// expires_at has passed, routing it to CIPS fallback settlement. Entries
// this cycle already matched are left alone even if their deadline also
// passed — they are settling through the pool, not timing out of it.
func (o *Orchestrator) sweepTimeouts(ctx context.Context, ngnEntries, cnyEntries []*models.PoolEntry, consumed map[string]bool, now time.Time) (int, error) {
	count := 0
	for _, lane := range [][]*models.PoolEntry{ngnEntries, cnyEntries} {
		for _, entry := range lane {
			if consumed[entry.ID] || !entry.ExpiresAt.Before(now) {
				continue
			}
			expired, err := o.expireEntry(ctx, entry, now)
			if err != nil {
				return count, err
			}
			if expired {
				count++
			}
		}
	}
	return count, nil
}

// expireEntry routes one timed-out pool entry to CIPS fallback: its
// transaction moves to EXPIRED tagged cips_settled, and its pool row is
// dropped from both the volatile store and the durable table.
func (o *Orchestrator) expireEntry(ctx context.Context, entry *models.PoolEntry, now time.Time) (bool, error) {
	txn, err := o.store.GetTransaction(ctx, entry.TransactionID)
	if err != nil {
		return false, fmt.Errorf("load transaction %s: %w", entry.TransactionID, err)
	}

	if err := fsm.TransitionTo(txn, models.StatusExpired, now); err != nil {
		log.Printf("[Matching] skipping pool timeout for %s: %v", txn.ID, err)
		return false, nil
	}
	method := models.SettlementCIPS
	txn.SettlementMethod = &method

	if err := o.store.UpdateTransactionStatus(ctx, txn); err != nil {
		return false, err
	}
	if err := o.mutate.Remove(ctx, entry.Direction, entry.Currency, entry.ID); err != nil {
		return false, err
	}
	if err := o.store.DeactivatePoolEntry(ctx, entry.ID); err != nil {
		return false, err
	}

	return true, nil
}

func toRefs(entries []*models.PoolEntry, amountFor func(*models.PoolEntry) decimal.Decimal) []matcher.EntryRef {
	refs := make([]matcher.EntryRef, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, matcher.EntryRef{
			ID:        e.ID,
			Amount:    amountFor(e),
			Priority:  e.Priority,
			Direction: string(e.Direction),
		})
	}
	return refs
}

func filterConsumed(refs []matcher.EntryRef, consumed map[string]bool) []matcher.EntryRef {
	out := make([]matcher.EntryRef, 0, len(refs))
	for _, r := range refs {
		if !consumed[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// toCNY converts an NGN amount to its CNY equivalent using the engine's
// NGN-per-CNY cross rate.
func toCNY(ngnAmount, ngnPerCNY decimal.Decimal) decimal.Decimal {
	if ngnPerCNY.IsZero() {
		return decimal.Zero
	}
	return money.RoundAmount(ngnAmount.Div(ngnPerCNY))
}

// applyDescriptor turns one matcher output into Match rows, transaction
// transitions, and pool writebacks. Returns the total amount it recorded as
// matched, in CNY.
func (o *Orchestrator) applyDescriptor(ctx context.Context, cycleID string, d matcher.MatchDescriptor, byID map[string]*models.PoolEntry, matchedRate decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if d.Type == "multi" {
		return o.applyMulti(ctx, cycleID, d, byID, matchedRate, now)
	}

	ngnEntry, cnyEntry := splitSides(d.PoolAEntry, d.PoolBEntry, byID)

	var ngnRemaining, cnyRemaining decimal.Decimal
	if d.Remainder != nil {
		if d.Remainder.PoolAID == ngnEntry.ID {
			ngnRemaining, cnyRemaining = d.Remainder.PoolARemaining, d.Remainder.PoolBRemaining
		} else {
			ngnRemaining, cnyRemaining = d.Remainder.PoolBRemaining, d.Remainder.PoolARemaining
		}
	}

	matchID := "MT-" + uuid.NewString()
	match := &models.Match{
		ID:            matchID,
		CycleID:       cycleID,
		BuyTxnID:      ngnEntry.TransactionID,
		SellTxnID:     cnyEntry.TransactionID,
		MatchType:     matchTypeFor(d.Type),
		MatchedAmount: d.MatchedAmount,
		MatchedRate:   matchedRate,
		Status:        models.MatchPendingSettlement,
		MatchedAt:     now,
	}
	if err := o.store.InsertMatch(ctx, match); err != nil {
		return decimal.Zero, err
	}

	// d.Remainder is only set when one side didn't fully consume the
	// other; its presence, not either side's own leftover, is what
	// decides whether a fully-consumed side ends MATCHED or PARTIAL_MATCHED.
	hasRemainder := d.Remainder != nil

	if err := o.applySide(ctx, ngnEntry, toNative(ngnRemaining, ngnEntry.Direction, matchedRate), hasRemainder, matchID, d.Type, now); err != nil {
		return decimal.Zero, err
	}
	if err := o.applySide(ctx, cnyEntry, toNative(cnyRemaining, cnyEntry.Direction, matchedRate), hasRemainder, matchID, d.Type, now); err != nil {
		return decimal.Zero, err
	}

	return d.MatchedAmount, nil
}

// toNative converts a CNY-equivalent amount back into an entry's own
// native currency: NGN-side entries are scaled by the cross rate, CNY-side
// entries are already in their native unit.
func toNative(amountCNY decimal.Decimal, direction models.Direction, ngnPerCNY decimal.Decimal) decimal.Decimal {
	if direction == models.DirectionNGNToCNY {
		return money.RoundAmount(amountCNY.Mul(ngnPerCNY))
	}
	return amountCNY
}

// applyMulti fans a multi-leg descriptor out into one Match row per leg,
// allocating the assembled total across legs in the order the matcher
// picked them — only the final leg can end up partially consumed.
func (o *Orchestrator) applyMulti(ctx context.Context, cycleID string, d matcher.MatchDescriptor, byID map[string]*models.PoolEntry, matchedRate decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	target := byID[d.PoolAEntry.ID]
	if target == nil {
		return decimal.Zero, fmt.Errorf("matching: unknown target entry %s", d.PoolAEntry.ID)
	}

	targetRemaining := d.PoolAEntry.Amount.Sub(d.MatchedAmount)
	if targetRemaining.IsNegative() {
		targetRemaining = decimal.Zero
	}

	// First pass: work out each leg's allocation and its own leftover
	// without touching the database, so we know before persisting
	// anything whether the whole descriptor is a clean fill or leaves a
	// remainder somewhere (target or any leg) — that, not any single
	// entry's own leftover, decides MATCHED vs PARTIAL_MATCHED for every
	// fully-consumed participant.
	type legAlloc struct {
		leg       *models.PoolEntry
		ref       matcher.EntryRef
		alloc     decimal.Decimal
		remaining decimal.Decimal
	}

	remainingToAllocate := d.MatchedAmount
	var legs []legAlloc
	hasRemainder := targetRemaining.IsPositive()

	for _, legRef := range d.PoolBEntries {
		leg := byID[legRef.ID]
		if leg == nil {
			return decimal.Zero, fmt.Errorf("matching: unknown leg entry %s", legRef.ID)
		}

		alloc := money.Min(legRef.Amount, remainingToAllocate)
		if alloc.IsNegative() {
			alloc = decimal.Zero
		}
		legRemaining := legRef.Amount.Sub(alloc)
		remainingToAllocate = remainingToAllocate.Sub(alloc)

		if legRemaining.IsPositive() {
			hasRemainder = true
		}

		legs = append(legs, legAlloc{leg: leg, ref: legRef, alloc: alloc, remaining: legRemaining})
	}

	var totalRecorded decimal.Decimal

	for _, la := range legs {
		if la.alloc.IsZero() {
			continue
		}

		var ngnEntry, cnyEntry *models.PoolEntry
		if target.Direction == models.DirectionNGNToCNY {
			ngnEntry, cnyEntry = target, la.leg
		} else {
			ngnEntry, cnyEntry = la.leg, target
		}

		matchID := "MT-" + uuid.NewString()
		match := &models.Match{
			ID:            matchID,
			CycleID:       cycleID,
			BuyTxnID:      ngnEntry.TransactionID,
			SellTxnID:     cnyEntry.TransactionID,
			MatchType:     models.MatchTypeMulti,
			MatchedAmount: la.alloc,
			MatchedRate:   matchedRate,
			Status:        models.MatchPendingSettlement,
			MatchedAt:     now,
		}
		if err := o.store.InsertMatch(ctx, match); err != nil {
			return decimal.Zero, err
		}

		if err := o.applySide(ctx, la.leg, toNative(la.remaining, la.leg.Direction, matchedRate), hasRemainder, matchID, "multi", now); err != nil {
			return decimal.Zero, err
		}

		totalRecorded = totalRecorded.Add(la.alloc)
	}

	// The target consumed legs from several counterparties; there is no
	// single Match row to point its MatchID at, so it records the cycle
	// that settled it instead.
	if err := o.applySide(ctx, target, toNative(targetRemaining, target.Direction, matchedRate), hasRemainder, cycleID, "multi", now); err != nil {
		return decimal.Zero, err
	}

	return totalRecorded, nil
}

// applySide advances one transaction through the in-cycle portion of its
// FSM and writes back whatever amount the pass left unconsumed, if any.
// It never moves a transaction past MATCHED/PARTIAL_MATCHED — the move to
// PENDING_SETTLEMENT belongs to the settlement collaborator, out of scope
// here.
//
// remaining is this entry's own leftover amount after the pass (positive
// means it re-enters the pool). hasDescriptorRemainder reports whether
// the match as a whole left a remainder anywhere among its participants:
// a side with its own remaining > 0 always reverts to MATCHING so it can
// keep matching; a side fully consumed here ends MATCHED only if nothing
// else in the same match was left over, otherwise PARTIAL_MATCHED.
func (o *Orchestrator) applySide(ctx context.Context, entry *models.PoolEntry, remaining decimal.Decimal, hasDescriptorRemainder bool, matchID, matchType string, now time.Time) error {
	txn, err := o.store.GetTransaction(ctx, entry.TransactionID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", entry.TransactionID, err)
	}

	selfRemainder := remaining.IsPositive()

	if err := fsm.TransitionTo(txn, models.StatusMatching, now); err != nil {
		return err
	}

	var method models.SettlementMethod
	switch {
	case selfRemainder:
		// Still has a balance to place: MATCHING -> PARTIAL_MATCHED ->
		// MATCHING, re-entering the pool with its reduced amount.
		if err := fsm.TransitionTo(txn, models.StatusPartialMatched, now); err != nil {
			return err
		}
		if err := fsm.TransitionTo(txn, models.StatusMatching, now); err != nil {
			return err
		}
		method = models.SettlementPartialMatched
	case hasDescriptorRemainder:
		// Fully consumed here, but another participant in this same match
		// was left with a remainder, so the match as a whole is partial.
		if err := fsm.TransitionTo(txn, models.StatusPartialMatched, now); err != nil {
			return err
		}
		method = models.SettlementPartialMatched
	default:
		if err := fsm.TransitionTo(txn, models.StatusMatched, now); err != nil {
			return err
		}
		method = models.SettlementMatched
	}
	txn.MatchID = &matchID
	txn.SettlementMethod = &method

	if err := o.store.UpdateTransactionStatus(ctx, txn); err != nil {
		return err
	}

	if selfRemainder {
		if err := o.mutate.UpdateAmount(ctx, entry.ID, remaining); err != nil {
			return err
		}
		if err := o.store.UpdatePoolEntryAmount(ctx, entry.ID, remaining); err != nil {
			return err
		}
	} else {
		if err := o.mutate.Remove(ctx, entry.Direction, entry.Currency, entry.ID); err != nil {
			return err
		}
		if err := o.store.DeactivatePoolEntry(ctx, entry.ID); err != nil {
			return err
		}
	}

	o.notifier.Matched(txn.ID, txn.TraderID, matchType)
	return nil
}

func splitSides(a, b matcher.EntryRef, byID map[string]*models.PoolEntry) (ngn, cny *models.PoolEntry) {
	aEntry, bEntry := byID[a.ID], byID[b.ID]
	if aEntry.Direction == models.DirectionNGNToCNY {
		return aEntry, bEntry
	}
	return bEntry, aEntry
}

func matchTypeFor(t string) models.MatchType {
	switch t {
	case "exact":
		return models.MatchTypeExact
	case "partial":
		return models.MatchTypePartial
	default:
		return models.MatchTypeMulti
	}
}
