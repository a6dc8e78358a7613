package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

type fakeExpiryStore struct {
	stale   []*models.Transaction
	updated []*models.Transaction
}

func (f *fakeExpiryStore) ListStaleInitiated(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error) {
	return f.stale, nil
}

func (f *fakeExpiryStore) UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error {
	f.updated = append(f.updated, t)
	return nil
}

type fakeExpiryDispatcher struct {
	notified []string
}

func (f *fakeExpiryDispatcher) Expired(transactionID, traderID string) {
	f.notified = append(f.notified, transactionID)
}

func staleTxn(id string) *models.Transaction {
	return &models.Transaction{
		ID: id, Reference: "TXN-" + id, TraderID: "trader-" + id,
		Direction: models.DirectionNGNToCNY, SourceAmount: decimal.NewFromInt(1000),
		Status: models.StatusInitiated, CreatedAt: time.Now().Add(-3 * time.Hour), UpdatedAt: time.Now().Add(-3 * time.Hour),
	}
}

func TestSweep_ExpiresStaleTransactions(t *testing.T) {
	store := &fakeExpiryStore{stale: []*models.Transaction{staleTxn("t1"), staleTxn("t2")}}
	dispatcher := &fakeExpiryDispatcher{}

	w := New(store, dispatcher, 2*time.Hour)
	count, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 expired, got %d", count)
	}
	for _, txn := range store.updated {
		if txn.Status != models.StatusExpired {
			t.Errorf("expected EXPIRED, got %s", txn.Status)
		}
	}
	if len(dispatcher.notified) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(dispatcher.notified))
	}
}

func TestSweep_NoStaleTransactionsIsANoOp(t *testing.T) {
	store := &fakeExpiryStore{}
	dispatcher := &fakeExpiryDispatcher{}

	w := New(store, dispatcher, 2*time.Hour)
	count, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 expired, got %d", count)
	}
}

func TestSweep_SkipsTransactionWithIllegalTransition(t *testing.T) {
	already := staleTxn("t-done")
	already.Status = models.StatusCompleted
	store := &fakeExpiryStore{stale: []*models.Transaction{already}}
	dispatcher := &fakeExpiryDispatcher{}

	w := New(store, dispatcher, 2*time.Hour)
	count, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if count != 0 {
		t.Errorf("expected the illegal transition to be skipped, got %d expired", count)
	}
	if len(dispatcher.notified) != 0 {
		t.Errorf("expected no notification for skipped transaction")
	}
}
