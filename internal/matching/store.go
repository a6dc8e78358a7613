// Package matching implements the matching cycle orchestrator: acquire the
// cross-process lock, snapshot both currency lanes of the pool, run the
// three matcher passes in order, persist the results, and release the lock.
package matching

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// CycleSummary is what one RunCycle produces for observability and for
// persistence as a cycle_reports row.
type CycleSummary struct {
	CycleID     string
	StartedAt   time.Time
	CompletedAt time.Time
	DurationMs  int64

	PoolSizeStartBuy   int
	PoolSizeStartSell  int
	PoolSizeStartTotal int

	ExactCount   int
	MultiCount   int
	PartialCount int
	Timeouts     int

	TotalMatched       decimal.Decimal
	MatchingEfficiency decimal.Decimal
}

// Store is the subset of persistence the orchestrator needs per
// transaction and per cycle.
type Store interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error
	InsertMatch(ctx context.Context, m *models.Match) error
	DeactivatePoolEntry(ctx context.Context, entryID string) error
	UpdatePoolEntryAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) error
	SaveCycleReport(ctx context.Context, report CycleSummary) error
}

// PoolSnapshotter reads a lane without mutating it.
type PoolSnapshotter interface {
	Snapshot(ctx context.Context, direction models.Direction, currency string) ([]*models.PoolEntry, error)
}

// PoolMutator applies what a cycle consumed back onto the volatile pool.
type PoolMutator interface {
	Remove(ctx context.Context, direction models.Direction, currency, entryID string) error
	UpdateAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) error
}

// Locker guards RunCycle against concurrent execution across however many
// scheduler instances are deployed.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (token string, err error)
	Release(ctx context.Context, name, token string) error
}

// RateSource supplies the cross rate used to convert NGN pool entries into
// their CNY equivalent for comparison, and is stamped onto each Match as
// MatchedRate.
type RateSource interface {
	GetRates(ctx context.Context) (*CurrentRates, error)
}

// CurrentRates mirrors the fields of rates.CurrentRates this package
// needs, so it does not have to import the rates package's cache/breaker
// internals just to read NGNPerCNY.
type CurrentRates struct {
	NGNPerUSD decimal.Decimal
	CNYPerUSD decimal.Decimal
	NGNPerCNY decimal.Decimal
}

// Dispatcher is the fire-and-forget notification surface RunCycle calls
// into for every transaction a pass touches.
type Dispatcher interface {
	Matched(transactionID, traderID, matchType string)
}
