package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/fsm"
	"github.com/tradeflow-africa/matching-core/internal/priority"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// ErrUnknownReference is returned when a decoded reference matches no
// transaction.
var ErrUnknownReference = errors.New("ingestion: unknown transaction reference")

// defaultPoolTTL is how long a freshly funded entry stays eligible for
// matching before the orchestrator's timeout sweep reclaims it. New sets
// it; WithPoolTTL replaces it only when given a positive ttl.
const defaultPoolTTL = 24 * time.Hour

// Store is the subset of persistence operations webhook ingestion needs.
type Store interface {
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetTrader(ctx context.Context, traderID string) (*models.Trader, error)
	UpdateTransactionAmounts(ctx context.Context, t *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error
	InsertPoolEntry(ctx context.Context, e *models.PoolEntry) error
}

// PoolAdder is the volatile pool-store operation ingestion needs.
type PoolAdder interface {
	Add(ctx context.Context, entry *models.PoolEntry) error
}

// USDConverter turns a native-currency amount into its USD equivalent for
// priority scoring.
type USDConverter interface {
	ToUSD(ctx context.Context, currency string, amount decimal.Decimal) (decimal.Decimal, error)
}

// Dispatcher is the fire-and-forget notification surface ingestion calls into.
type Dispatcher interface {
	Funded(transactionID, traderID, reference, classification string)
	Held(transactionID, traderID, reference string)
}

// WebhookPayload is the inbound bank-webhook body. Signature validation is
// assumed to have already happened upstream of this handler.
type WebhookPayload struct {
	SessionID         string `json:"sessionId" binding:"required"`
	AccountNumber     string `json:"accountNumber" binding:"required"`
	TransactionAmount string `json:"transactionAmount" binding:"required"`
}

// Result is the handler's response shape.
type Result struct {
	Status            string `json:"status"`
	Classification    string `json:"classification,omitempty"`
	TransactionStatus string `json:"transaction_status,omitempty"`
	PoolEntryID       string `json:"pool_entry_id,omitempty"`
}

// Handler processes webhook payments into pool entries.
type Handler struct {
	store     Store
	pool      PoolAdder
	converter USDConverter
	notifier  Dispatcher
	poolTTL   time.Duration
}

// New wires a Handler from its collaborators.
func New(store Store, pool PoolAdder, converter USDConverter, notifier Dispatcher) *Handler {
	return &Handler{store: store, pool: pool, converter: converter, notifier: notifier, poolTTL: defaultPoolTTL}
}

// WithPoolTTL overrides the default pool entry lifetime (spec default
// 24h), wiring it to MATCHING_POOL_TIMEOUT_HOURS.
func (h *Handler) WithPoolTTL(ttl time.Duration) *Handler {
	if ttl > 0 {
		h.poolTTL = ttl
	}
	return h
}

// Handle decodes, classifies, and (when accepted) funds a transaction from
// an inbound webhook payment.
func (h *Handler) Handle(ctx context.Context, payload WebhookPayload) (*Result, error) {
	reference, err := DecodeReference(payload.AccountNumber)
	if err != nil {
		return nil, err
	}

	txn, err := h.store.GetTransactionByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}

	if txn.Status != models.StatusInitiated {
		return &Result{Status: "duplicate", TransactionStatus: string(txn.Status)}, nil
	}

	paid, err := decimal.NewFromString(payload.TransactionAmount)
	if err != nil {
		return nil, fmt.Errorf("ingestion: parse transactionAmount: %w", err)
	}

	result := Classify(txn.SourceAmount, txn.FeeAmount, paid)

	if result.Type == ClassificationHeld {
		h.notifier.Held(txn.ID, txn.TraderID, txn.Reference)
		return &Result{Status: "held", Classification: string(result.Type), TransactionStatus: string(txn.Status)}, nil
	}

	if result.Type == ClassificationAdjusted {
		txn.SourceAmount = result.AdjustedSourceAmount
		txn.FeeAmount = result.AdjustedFeeAmount
		if err := h.store.UpdateTransactionAmounts(ctx, txn); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := fsm.TransitionTo(txn, models.StatusFunded, now); err != nil {
		return nil, fmt.Errorf("ingestion: transition to funded: %w", err)
	}
	if err := h.store.UpdateTransactionStatus(ctx, txn); err != nil {
		return nil, err
	}

	trader, err := h.store.GetTrader(ctx, txn.TraderID)
	if err != nil {
		return nil, fmt.Errorf("ingestion: load trader %s: %w", txn.TraderID, err)
	}

	currency := txn.Direction.SourceCurrency()
	amountUSD, err := h.converter.ToUSD(ctx, currency, txn.SourceAmount)
	if err != nil {
		return nil, fmt.Errorf("ingestion: convert to usd: %w", err)
	}
	score := priority.Score(0, amountUSD, trader.KYCTier)

	entry := &models.PoolEntry{
		ID:            "PE-" + uuid.NewString(),
		TransactionID: txn.ID,
		TraderID:      txn.TraderID,
		Reference:     txn.Reference,
		Direction:     txn.Direction,
		Currency:      currency,
		SourceAmount:  txn.SourceAmount,
		Priority:      score,
		IsActive:      true,
		EnteredPoolAt: now,
		ExpiresAt:     now.Add(h.poolTTL),
	}

	if err := h.store.InsertPoolEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := h.pool.Add(ctx, entry); err != nil {
		return nil, err
	}

	h.notifier.Funded(txn.ID, txn.TraderID, txn.Reference, string(result.Type))

	return &Result{
		Status:            "success",
		Classification:    string(result.Type),
		TransactionStatus: "funded",
		PoolEntryID:       entry.ID,
	}, nil
}
