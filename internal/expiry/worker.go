// Package expiry sweeps stale INITIATED transactions that never got
// funded within their deposit window and moves them to EXPIRED,
// independent of the matching cycle's lock.
package expiry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tradeflow-africa/matching-core/internal/fsm"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// Store is the persistence surface the sweep needs.
type Store interface {
	ListStaleInitiated(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error
}

// Dispatcher is the fire-and-forget notification surface the sweep calls
// into for every transaction it expires.
type Dispatcher interface {
	Expired(transactionID, traderID string)
}

// Worker periodically expires transactions that sat in INITIATED past
// their funding window.
type Worker struct {
	store    Store
	notifier Dispatcher
	ttl      time.Duration
	now      func() time.Time
}

// New wires a Worker. ttl is how long a transaction may remain INITIATED
// before the sweep reclaims it.
func New(store Store, notifier Dispatcher, ttl time.Duration) *Worker {
	return &Worker{store: store, notifier: notifier, ttl: ttl, now: time.Now}
}

// Sweep runs one pass, expiring every transaction whose INITIATED window
// has elapsed. It returns how many it expired.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.ttl)

	stale, err := w.store.ListStaleInitiated(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiry: list stale initiated: %w", err)
	}

	now := w.now()
	expired := 0
	for _, txn := range stale {
		if err := fsm.TransitionTo(txn, models.StatusExpired, now); err != nil {
			log.Printf("[Expiry] skipping %s: %v", txn.ID, err)
			continue
		}
		if err := w.store.UpdateTransactionStatus(ctx, txn); err != nil {
			return expired, fmt.Errorf("expiry: persist expiry for %s: %w", txn.ID, err)
		}
		w.notifier.Expired(txn.ID, txn.TraderID)
		expired++
	}

	if expired > 0 {
		log.Printf("[Expiry] swept %d stale transaction(s) older than %s", expired, cutoff.Format(time.RFC3339))
	}

	return expired, nil
}

// Run blocks, calling Sweep on a fixed interval until ctx is canceled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				log.Printf("[Expiry] sweep failed: %v", err)
			}
		}
	}
}
