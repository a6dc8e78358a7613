package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolEntry is a funded transaction waiting for a counterparty. It mirrors
// the owning Transaction's identifying fields plus the mutable amount a
// cycle can still match against. Exactly one active row exists per
// transaction; the durable copy lives in the `matching_pool` table, the
// volatile copy in the Redis pool store (internal/pool).
type PoolEntry struct {
	ID            string
	TransactionID string
	TraderID      string
	Reference     string
	Direction     Direction
	Currency      string
	SourceAmount  decimal.Decimal // currently-matchable amount; shrinks on partial fills
	TargetAmount  *decimal.Decimal
	Priority      float64 // [0, 100], higher matches first
	IsActive      bool
	EnteredPoolAt time.Time
	ExpiresAt     time.Time
}

// Validate enforces that expiry strictly follows entry into the pool.
func (p PoolEntry) Validate() error {
	if !p.ExpiresAt.After(p.EnteredPoolAt) {
		return ErrPoolEntryExpiry
	}
	return nil
}

// IsExpired reports whether the entry has outlived its pool TTL as of now.
func (p PoolEntry) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
