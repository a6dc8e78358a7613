package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

type fakeStore struct {
	txns             map[string]*models.Transaction
	traders          map[string]*models.Trader
	insertedEntries  []*models.PoolEntry
	statusUpdates    []*models.Transaction
	amountUpdates    []*models.Transaction
}

func (f *fakeStore) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	t, ok := f.txns[reference]
	if !ok {
		return nil, ErrUnknownReference
	}
	return t, nil
}

func (f *fakeStore) GetTrader(ctx context.Context, traderID string) (*models.Trader, error) {
	tr, ok := f.traders[traderID]
	if !ok {
		return nil, ErrUnknownReference
	}
	return tr, nil
}

func (f *fakeStore) UpdateTransactionAmounts(ctx context.Context, t *models.Transaction) error {
	f.amountUpdates = append(f.amountUpdates, t)
	return nil
}

func (f *fakeStore) UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error {
	f.statusUpdates = append(f.statusUpdates, t)
	return nil
}

func (f *fakeStore) InsertPoolEntry(ctx context.Context, e *models.PoolEntry) error {
	f.insertedEntries = append(f.insertedEntries, e)
	return nil
}

type fakePoolAdder struct {
	added []*models.PoolEntry
}

func (f *fakePoolAdder) Add(ctx context.Context, entry *models.PoolEntry) error {
	f.added = append(f.added, entry)
	return nil
}

type fakeConverter struct{}

func (fakeConverter) ToUSD(ctx context.Context, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	return amount.Div(decimal.NewFromInt(1500)), nil
}

type fakeDispatcher struct {
	funded []string
	held   []string
}

func (f *fakeDispatcher) Funded(transactionID, traderID, reference, classification string) {
	f.funded = append(f.funded, transactionID)
}

func (f *fakeDispatcher) Held(transactionID, traderID, reference string) {
	f.held = append(f.held, transactionID)
}

func newTestSetup() (*Handler, *fakeStore, *fakePoolAdder, *fakeDispatcher) {
	store := &fakeStore{
		txns: map[string]*models.Transaction{
			"TXN-ABC123": {
				ID:            "txn-1",
				Reference:     "TXN-ABC123",
				TraderID:      "trader-1",
				Direction:     models.DirectionNGNToCNY,
				SourceAmount:  decimal.NewFromInt(10000),
				FeeAmount:     decimal.NewFromInt(200),
				Status:        models.StatusInitiated,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			},
		},
		traders: map[string]*models.Trader{
			"trader-1": {ID: "trader-1", KYCTier: models.KYCTier2},
		},
	}
	poolAdder := &fakePoolAdder{}
	dispatcher := &fakeDispatcher{}
	h := New(store, poolAdder, fakeConverter{}, dispatcher)
	return h, store, poolAdder, dispatcher
}

func TestHandle_ExactPaymentFundsTransaction(t *testing.T) {
	h, store, poolAdder, dispatcher := newTestSetup()

	result, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "TFABC123",
		TransactionAmount: "10200",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Status != "success" || result.Classification != "exact" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(store.insertedEntries) != 1 {
		t.Fatalf("expected 1 pool entry inserted, got %d", len(store.insertedEntries))
	}
	if len(poolAdder.added) != 1 {
		t.Fatalf("expected 1 pool add, got %d", len(poolAdder.added))
	}
	if len(dispatcher.funded) != 1 {
		t.Fatalf("expected 1 funded notification, got %d", len(dispatcher.funded))
	}
	if store.txns["TXN-ABC123"].Status != models.StatusFunded {
		t.Errorf("expected transaction funded, got %s", store.txns["TXN-ABC123"].Status)
	}
}

func TestHandle_HeldPaymentDoesNotTransition(t *testing.T) {
	h, store, poolAdder, dispatcher := newTestSetup()

	result, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "TFABC123",
		TransactionAmount: "1000",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Status != "held" {
		t.Fatalf("expected held, got %+v", result)
	}
	if store.txns["TXN-ABC123"].Status != models.StatusInitiated {
		t.Errorf("expected status unchanged on held, got %s", store.txns["TXN-ABC123"].Status)
	}
	if len(poolAdder.added) != 0 {
		t.Errorf("expected no pool entry for held payment, got %d", len(poolAdder.added))
	}
	if len(dispatcher.held) != 1 {
		t.Errorf("expected 1 held notification, got %d", len(dispatcher.held))
	}
}

func TestHandle_DuplicateWhenNotInitiated(t *testing.T) {
	h, store, _, _ := newTestSetup()
	store.txns["TXN-ABC123"].Status = models.StatusFunded

	result, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "TFABC123",
		TransactionAmount: "10200",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Status != "duplicate" {
		t.Fatalf("expected duplicate, got %+v", result)
	}
}

func TestHandle_UnknownReferenceErrors(t *testing.T) {
	h, _, _, _ := newTestSetup()

	_, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "TFNOPE",
		TransactionAmount: "10200",
	})
	if err == nil {
		t.Fatal("expected error for unknown reference")
	}
}

func TestHandle_MalformedAccountNumberErrors(t *testing.T) {
	h, _, _, _ := newTestSetup()

	_, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "XX123",
		TransactionAmount: "10200",
	})
	if err == nil {
		t.Fatal("expected error for malformed account number")
	}
}

func TestHandle_AdjustedPaymentScalesAmounts(t *testing.T) {
	h, store, _, _ := newTestSetup()

	_, err := h.Handle(context.Background(), WebhookPayload{
		SessionID:         "s1",
		AccountNumber:     "TFABC123",
		TransactionAmount: "9690", // exactly 95% of 10200
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	txn := store.txns["TXN-ABC123"]
	wantSource := decimal.NewFromInt(10000).Mul(decimal.NewFromFloat(0.95)).Round(2)
	if !txn.SourceAmount.Equal(wantSource) {
		t.Errorf("source amount = %s, want %s", txn.SourceAmount, wantSource)
	}
	if len(store.amountUpdates) != 1 {
		t.Errorf("expected 1 amount update, got %d", len(store.amountUpdates))
	}
}
