package pool

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// fakeRedis is an in-memory stand-in for *redis.Client, covering only the
// commands redisCmd declares.
type fakeRedis struct {
	zsets  map[string]map[string]float64
	hashes map[string]map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]string),
	}
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.zsets[key] == nil {
		f.zsets[key] = make(map[string]float64)
	}
	for _, z := range members {
		f.zsets[key][z.Member.(string)] = z.Score
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedis) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, m := range members {
		id := m.(string)
		if _, ok := f.zsets[key][id]; ok {
			delete(f.zsets[key], id)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	cmd := redis.NewZSliceCmd(ctx)
	members := f.zsets[key]
	out := make([]redis.Z, 0, len(members))
	for member, score := range members {
		out = append(out, redis.Z{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedis) ZCard(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.zsets[key])))
	return cmd
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for i := 0; i+1 < len(values); i += 2 {
		field := values[i].(string)
		switch v := values[i+1].(type) {
		case string:
			f.hashes[key][field] = v
		case []byte:
			f.hashes[key][field] = string(v)
		}
	}
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (f *fakeRedis) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx)
	cmd.SetVal(f.hashes[key])
	return cmd
}

func (f *fakeRedis) HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, field := range fields {
		if _, ok := f.hashes[key][field]; ok {
			delete(f.hashes[key], field)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, key := range keys {
		if _, ok := f.hashes[key]; ok {
			delete(f.hashes, key)
			n++
		}
		if _, ok := f.zsets[key]; ok {
			delete(f.zsets, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func sampleEntry(id string, priority float64, amount int64) *models.PoolEntry {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.PoolEntry{
		ID:            id,
		TransactionID: "txn-" + id,
		TraderID:      "trader-1",
		Reference:     "REF-" + id,
		Direction:     models.DirectionNGNToCNY,
		Currency:      "NGN",
		SourceAmount:  decimal.NewFromInt(amount),
		Priority:      priority,
		IsActive:      true,
		EnteredPoolAt: now,
		ExpiresAt:     now.Add(2 * time.Hour),
	}
}

func TestStore_AddAndSnapshot_OrdersByPriorityDescending(t *testing.T) {
	s := &Store{rdb: newFakeRedis()}
	ctx := context.Background()

	low := sampleEntry("e1", 10, 1000)
	high := sampleEntry("e2", 90, 2000)
	mid := sampleEntry("e3", 50, 1500)

	for _, e := range []*models.PoolEntry{low, high, mid} {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	snap, err := s.Snapshot(ctx, models.DirectionNGNToCNY, "NGN")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	if snap[0].ID != "e2" || snap[1].ID != "e3" || snap[2].ID != "e1" {
		t.Fatalf("expected order [e2 e3 e1], got [%s %s %s]", snap[0].ID, snap[1].ID, snap[2].ID)
	}
}

func TestStore_Remove_DropsFromLaneAndDetail(t *testing.T) {
	s := &Store{rdb: newFakeRedis()}
	ctx := context.Background()

	e := sampleEntry("e1", 10, 1000)
	if err := s.Add(ctx, e); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Remove(ctx, models.DirectionNGNToCNY, "NGN", "e1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	snap, err := s.Snapshot(ctx, models.DirectionNGNToCNY, "NGN")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("expected empty lane after remove, got %d entries", len(snap))
	}
}

func TestStore_UpdateAmount_LeavesPriorityUnchanged(t *testing.T) {
	s := &Store{rdb: newFakeRedis()}
	ctx := context.Background()

	e := sampleEntry("e1", 42, 1000)
	if err := s.Add(ctx, e); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.UpdateAmount(ctx, "e1", decimal.NewFromInt(400)); err != nil {
		t.Fatalf("UpdateAmount: %v", err)
	}

	snap, err := s.Snapshot(ctx, models.DirectionNGNToCNY, "NGN")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}
	if !snap[0].SourceAmount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected updated amount 400, got %s", snap[0].SourceAmount)
	}
	if snap[0].Priority != 42 {
		t.Errorf("expected priority unchanged at 42, got %v", snap[0].Priority)
	}
}

func TestStore_Stats_SumsActiveAmounts(t *testing.T) {
	s := &Store{rdb: newFakeRedis()}
	ctx := context.Background()

	for _, e := range []*models.PoolEntry{
		sampleEntry("e1", 10, 1000),
		sampleEntry("e2", 20, 2500),
	} {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	count, total, err := s.Stats(ctx, models.DirectionNGNToCNY, "NGN")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
	if !total.Equal(decimal.NewFromInt(3500)) {
		t.Errorf("expected total 3500, got %s", total)
	}
}
