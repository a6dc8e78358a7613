// Package pool implements the volatile matching pool: a priority-ordered
// set of funded transactions waiting for a counterparty, held in Redis
// sorted sets (one per direction/currency lane) with entry details in a
// companion hash per entry.
package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// redisCmd is the narrow slice of *redis.Client this package depends on,
// so tests can supply an in-memory fake instead of a live Redis instance.
type redisCmd interface {
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store is the Redis-backed matching pool. One sorted set exists per
// (direction, currency) lane; members are pool entry IDs, scores are
// priority values so ZRevRange yields entries highest-priority-first.
type Store struct {
	rdb redisCmd
}

// NewStore wraps a live Redis client.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func laneKey(direction models.Direction, currency string) string {
	return fmt.Sprintf("pool:%s:%s", direction, currency)
}

func detailKey(entryID string) string {
	return "pool:detail:" + entryID
}

// entryDetail is the JSON-serialized hash value stored per entry, used to
// reconstruct a models.PoolEntry from Snapshot without a second round trip
// per field.
type entryDetail struct {
	TransactionID string          `json:"transaction_id"`
	TraderID      string          `json:"trader_id"`
	Reference     string          `json:"reference"`
	Direction     models.Direction `json:"direction"`
	Currency      string          `json:"currency"`
	SourceAmount  string          `json:"source_amount"`
	TargetAmount  string          `json:"target_amount,omitempty"`
	EnteredPoolAt time.Time       `json:"entered_pool_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Add inserts or re-scores a pool entry in its lane and writes its detail
// hash. Both writes target the same logical entry so a crash between them
// only ever leaves an orphaned detail hash, never a dangling lane member
// with no detail.
func (s *Store) Add(ctx context.Context, entry *models.PoolEntry) error {
	d := entryDetail{
		TransactionID: entry.TransactionID,
		TraderID:      entry.TraderID,
		Reference:     entry.Reference,
		Direction:     entry.Direction,
		Currency:      entry.Currency,
		SourceAmount:  entry.SourceAmount.String(),
		EnteredPoolAt: entry.EnteredPoolAt,
		ExpiresAt:     entry.ExpiresAt,
	}
	if entry.TargetAmount != nil {
		d.TargetAmount = entry.TargetAmount.String()
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("pool: marshal entry detail: %w", err)
	}

	if err := s.rdb.HSet(ctx, detailKey(entry.ID), "data", raw).Err(); err != nil {
		return fmt.Errorf("pool: write detail hash: %w", err)
	}

	key := laneKey(entry.Direction, entry.Currency)
	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: entry.Priority, Member: entry.ID}).Err(); err != nil {
		return fmt.Errorf("pool: zadd %s: %w", key, err)
	}
	return nil
}

// Remove drops an entry from its lane and deletes its detail hash. Safe to
// call on an already-removed entry.
func (s *Store) Remove(ctx context.Context, direction models.Direction, currency, entryID string) error {
	key := laneKey(direction, currency)
	if err := s.rdb.ZRem(ctx, key, entryID).Err(); err != nil {
		return fmt.Errorf("pool: zrem %s: %w", key, err)
	}
	if err := s.rdb.Del(ctx, detailKey(entryID)).Err(); err != nil {
		return fmt.Errorf("pool: del detail %s: %w", entryID, err)
	}
	return nil
}

// UpdateAmount rewrites an entry's source amount in place after a partial
// fill, leaving its lane score (priority) untouched — a partial fill does
// not re-rank the entry.
func (s *Store) UpdateAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) error {
	res, err := s.rdb.HGetAll(ctx, detailKey(entryID)).Result()
	if err != nil {
		return fmt.Errorf("pool: read detail %s: %w", entryID, err)
	}
	raw, ok := res["data"]
	if !ok {
		return fmt.Errorf("pool: detail %s not found", entryID)
	}

	var d entryDetail
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return fmt.Errorf("pool: unmarshal detail %s: %w", entryID, err)
	}
	d.SourceAmount = newAmount.String()

	updated, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("pool: remarshal detail %s: %w", entryID, err)
	}
	return s.rdb.HSet(ctx, detailKey(entryID), "data", updated).Err()
}

// Snapshot returns every entry in a lane, highest priority first. It never
// mutates the pool — callers (internal/matching) run the pure matchers
// against the snapshot, then call Remove/UpdateAmount for whatever the
// matchers consumed.
func (s *Store) Snapshot(ctx context.Context, direction models.Direction, currency string) ([]*models.PoolEntry, error) {
	key := laneKey(direction, currency)
	members, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("pool: zrevrange %s: %w", key, err)
	}

	entries := make([]*models.PoolEntry, 0, len(members))
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}

		res, err := s.rdb.HGetAll(ctx, detailKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("pool: read detail %s: %w", id, err)
		}
		raw, ok := res["data"]
		if !ok {
			// Lane member survived past its detail hash expiring or being
			// dropped; skip rather than fail the whole snapshot.
			continue
		}

		var d entryDetail
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("pool: unmarshal detail %s: %w", id, err)
		}

		sourceAmount, err := decimal.NewFromString(d.SourceAmount)
		if err != nil {
			return nil, fmt.Errorf("pool: parse source_amount for %s: %w", id, err)
		}

		entry := &models.PoolEntry{
			ID:            id,
			TransactionID: d.TransactionID,
			TraderID:      d.TraderID,
			Reference:     d.Reference,
			Direction:     d.Direction,
			Currency:      d.Currency,
			SourceAmount:  sourceAmount,
			Priority:      z.Score,
			IsActive:      true,
			EnteredPoolAt: d.EnteredPoolAt,
			ExpiresAt:     d.ExpiresAt,
		}
		if d.TargetAmount != "" {
			target, err := decimal.NewFromString(d.TargetAmount)
			if err == nil {
				entry.TargetAmount = &target
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Stats reports the lane's current size and total still-matchable amount.
func (s *Store) Stats(ctx context.Context, direction models.Direction, currency string) (count int64, total decimal.Decimal, err error) {
	entries, err := s.Snapshot(ctx, direction, currency)
	if err != nil {
		return 0, decimal.Zero, err
	}
	total = decimal.Zero
	for _, e := range entries {
		total = total.Add(e.SourceAmount)
	}
	return int64(len(entries)), total, nil
}
