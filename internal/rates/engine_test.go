package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeRatesRedis struct {
	strings map[string]string
	zsets   map[string]map[string]float64
}

func newFakeRatesRedis() *fakeRatesRedis {
	return &fakeRatesRedis{
		strings: make(map[string]string),
		zsets:   make(map[string]map[string]float64),
	}
}

func (f *fakeRatesRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	v, ok := f.strings[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRatesRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case string:
		f.strings[key] = v
	case []byte:
		f.strings[key] = string(v)
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRatesRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.strings[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRatesRedis) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
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

func (f *fakeRatesRedis) ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(0) // test windows never span the 1h cutoff
	return cmd
}

func (f *fakeRatesRedis) ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	cmd := redis.NewZSliceCmd(ctx)
	out := make([]redis.Z, 0, len(f.zsets[key]))
	for member, score := range f.zsets[key] {
		out = append(out, redis.Z{Member: member, Score: score})
	}
	cmd.SetVal(out)
	return cmd
}

func newTestEngine(provider Provider) (*Engine, *fakeRatesRedis) {
	fake := newFakeRatesRedis()
	e := &Engine{
		rdb:      fake,
		provider: provider,
		cacheTTL: 60 * time.Second,
		quoteTTL: 60 * time.Second,
		now:      func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
	return e, fake
}

func TestGetRates_ComputesCrossRate(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, _ := newTestEngine(provider)

	r, err := e.GetRates(context.Background())
	if err != nil {
		t.Fatalf("GetRates: %v", err)
	}
	want := decimal.NewFromFloat(1550).Div(decimal.NewFromFloat(7.25)).Round(4)
	if !r.NGNPerCNY.Equal(want) {
		t.Errorf("NGNPerCNY = %s, want %s", r.NGNPerCNY, want)
	}
	if r.Source != "live" {
		t.Errorf("expected source 'live' on first fetch, got %s", r.Source)
	}
}

func TestGetRates_SecondCallHitsCache(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, _ := newTestEngine(provider)
	ctx := context.Background()

	if _, err := e.GetRates(ctx); err != nil {
		t.Fatalf("first GetRates: %v", err)
	}
	r, err := e.GetRates(ctx)
	if err != nil {
		t.Fatalf("second GetRates: %v", err)
	}
	if r.Source != "cache" {
		t.Errorf("expected source 'cache' on second fetch, got %s", r.Source)
	}
}

func TestGetRates_FailsWhenBreakerOpen(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, fake := newTestEngine(provider)
	fake.strings[breakerKey] = "1"

	_, err := e.GetRates(context.Background())
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen, got %v", err)
	}
}

func TestFeeTier_Thresholds(t *testing.T) {
	cases := []struct {
		volume int64
		label  string
	}{
		{600_000, "platinum"},
		{500_000, "platinum"},
		{499_999, "gold"},
		{200_000, "gold"},
		{199_999, "silver"},
		{50_000, "silver"},
		{49_999, "standard"},
		{0, "standard"},
	}
	for _, c := range cases {
		label, _ := FeeTier(decimal.NewFromInt(c.volume))
		if label != c.label {
			t.Errorf("FeeTier(%d) = %s, want %s", c.volume, label, c.label)
		}
	}
}

func TestQuote_RejectsUnsupportedPair(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, _ := newTestEngine(provider)

	_, err := e.Quote(context.Background(), "NGN", "USD", decimal.NewFromInt(1000), decimal.Zero)
	if !errors.Is(err, ErrUnsupportedPair) {
		t.Fatalf("expected ErrUnsupportedPair, got %v", err)
	}
}

func TestQuote_AppliesMinFeeFloor(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, _ := newTestEngine(provider)

	// A tiny amount: standard 2% fee would be far below the 5000 NGN floor.
	q, err := e.Quote(context.Background(), "NGN", "CNY", decimal.NewFromInt(100), decimal.Zero)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.FeeAmount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected fee floor of 5000, got %s", q.FeeAmount)
	}
}

func TestQuote_SavingsNeverNegative(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, _ := newTestEngine(provider)

	q, err := e.Quote(context.Background(), "NGN", "CNY", decimal.NewFromInt(100), decimal.Zero)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.SavingsVsBank.IsNegative() {
		t.Errorf("expected non-negative savings, got %s", q.SavingsVsBank)
	}
}

func TestQuote_FailsWhenBreakerOpen(t *testing.T) {
	provider := &MockProvider{NGNPerUSD: decimal.NewFromFloat(1550), CNYPerUSD: decimal.NewFromFloat(7.25)}
	e, fake := newTestEngine(provider)
	fake.strings[breakerKey] = "1"

	_, err := e.Quote(context.Background(), "NGN", "CNY", decimal.NewFromInt(1000), decimal.Zero)
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen, got %v", err)
	}
}
