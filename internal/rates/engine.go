package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/money"
)

// ErrCircuitBreakerOpen is returned by GetRates and Quote while the
// volatility breaker is tripped.
var ErrCircuitBreakerOpen = errors.New("rates: circuit breaker open")

// ErrUnsupportedPair is returned for any currency pair other than
// NGN<->CNY.
var ErrUnsupportedPair = errors.New("rates: unsupported currency pair")

const (
	cacheKey        = "fx_rates:USD"
	historyKey      = "rate_history:NGN_CNY"
	breakerKey      = "circuit_breaker:rates"
	breakerWindow   = 1 * time.Hour
	breakerMovePct  = 3.0
	breakerCooldown = 15 * time.Minute
	minFeeNGN       = 5000
)

type redisCmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

// Engine is the FX rate engine: cached cross rates, rolling volatility
// history, a circuit breaker, fee tiers, and quote minting.
type Engine struct {
	rdb        redisCmd
	provider   Provider
	cacheTTL   time.Duration
	quoteTTL   time.Duration
	now        func() time.Time
}

// Config bundles the tunables GetRates/Quote need; zero values fall back
// to the documented defaults.
type Config struct {
	CacheTTL time.Duration
	QuoteTTL time.Duration
}

// NewEngine wires a live Redis client and rate provider.
func NewEngine(rdb *redis.Client, provider Provider, cfg Config) *Engine {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 60 * time.Second
	}
	if cfg.QuoteTTL == 0 {
		cfg.QuoteTTL = 60 * time.Second
	}
	return &Engine{
		rdb:      rdb,
		provider: provider,
		cacheTTL: cfg.CacheTTL,
		quoteTTL: cfg.QuoteTTL,
		now:      time.Now,
	}
}

type cachedRates struct {
	NGNPerUSD string    `json:"ngn_per_usd"`
	CNYPerUSD string    `json:"cny_per_usd"`
	NGNPerCNY string    `json:"ngn_per_cny"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// CurrentRates is the public shape returned to API callers.
type CurrentRates struct {
	NGNPerUSD decimal.Decimal
	CNYPerUSD decimal.Decimal
	NGNPerCNY decimal.Decimal
	Timestamp time.Time
	Source    string
}

// GetRates returns the cached cross rates, refreshing from the provider on
// a cache miss. It fails with ErrCircuitBreakerOpen while the breaker is
// tripped, before even consulting the cache.
func (e *Engine) GetRates(ctx context.Context) (*CurrentRates, error) {
	open, err := e.CircuitBreakerOpen(ctx)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrCircuitBreakerOpen
	}

	if cached, ok, err := e.readCache(ctx); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	snap, err := e.provider.FetchRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("rates: provider fetch: %w", err)
	}
	if snap.CNYPerUSD.IsZero() {
		return nil, fmt.Errorf("rates: provider returned zero cny_per_usd")
	}

	ngnPerCNY := money.RoundHalfUp(snap.NGNPerUSD.Div(snap.CNYPerUSD), money.QuotedRate)
	now := e.now()

	result := &CurrentRates{
		NGNPerUSD: snap.NGNPerUSD,
		CNYPerUSD: snap.CNYPerUSD,
		NGNPerCNY: ngnPerCNY,
		Timestamp: now,
		Source:    "live",
	}

	if err := e.writeCache(ctx, result); err != nil {
		return nil, err
	}
	if err := e.recordHistory(ctx, ngnPerCNY, now); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) readCache(ctx context.Context) (*CurrentRates, bool, error) {
	raw, err := e.rdb.Get(ctx, cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rates: read cache: %w", err)
	}

	var c cachedRates
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, false, fmt.Errorf("rates: unmarshal cache: %w", err)
	}

	ngn, err := decimal.NewFromString(c.NGNPerUSD)
	if err != nil {
		return nil, false, fmt.Errorf("rates: parse cached ngn_per_usd: %w", err)
	}
	cny, err := decimal.NewFromString(c.CNYPerUSD)
	if err != nil {
		return nil, false, fmt.Errorf("rates: parse cached cny_per_usd: %w", err)
	}
	ngnPerCNY, err := decimal.NewFromString(c.NGNPerCNY)
	if err != nil {
		return nil, false, fmt.Errorf("rates: parse cached ngn_per_cny: %w", err)
	}

	return &CurrentRates{
		NGNPerUSD: ngn,
		CNYPerUSD: cny,
		NGNPerCNY: ngnPerCNY,
		Timestamp: c.Timestamp,
		Source:    "cache",
	}, true, nil
}

func (e *Engine) writeCache(ctx context.Context, r *CurrentRates) error {
	raw, err := json.Marshal(cachedRates{
		NGNPerUSD: r.NGNPerUSD.String(),
		CNYPerUSD: r.CNYPerUSD.String(),
		NGNPerCNY: r.NGNPerCNY.String(),
		Timestamp: r.Timestamp,
		Source:    "live",
	})
	if err != nil {
		return fmt.Errorf("rates: marshal cache: %w", err)
	}
	if err := e.rdb.Set(ctx, cacheKey, raw, e.cacheTTL).Err(); err != nil {
		return fmt.Errorf("rates: write cache: %w", err)
	}
	return nil
}

// recordHistory appends the new rate to the rolling history, trims
// anything older than breakerWindow, then re-evaluates the breaker.
func (e *Engine) recordHistory(ctx context.Context, rate decimal.Decimal, at time.Time) error {
	member := fmt.Sprintf("%d:%s:%s", at.UnixNano(), uuid.NewString(), rate.String())
	if err := e.rdb.ZAdd(ctx, historyKey, redis.Z{Score: float64(at.Unix()), Member: member}).Err(); err != nil {
		return fmt.Errorf("rates: append history: %w", err)
	}

	cutoff := at.Add(-breakerWindow).Unix()
	if err := e.rdb.ZRemRangeByScore(ctx, historyKey, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return fmt.Errorf("rates: trim history: %w", err)
	}

	return e.evaluateBreaker(ctx)
}

func (e *Engine) evaluateBreaker(ctx context.Context) error {
	entries, err := e.rdb.ZRangeWithScores(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("rates: read history: %w", err)
	}
	if len(entries) < 2 {
		return nil
	}

	var min, max decimal.Decimal
	first := true
	for _, z := range entries {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		rate, ok := parseHistoryRate(member)
		if !ok {
			continue
		}
		if first {
			min, max = rate, rate
			first = false
			continue
		}
		if rate.LessThan(min) {
			min = rate
		}
		if rate.GreaterThan(max) {
			max = rate
		}
	}
	if first || min.IsZero() {
		return nil
	}

	movePct := max.Sub(min).Div(min).Mul(decimal.NewFromInt(100))
	if movePct.GreaterThan(decimal.NewFromFloat(breakerMovePct)) {
		if err := e.rdb.Set(ctx, breakerKey, "1", breakerCooldown).Err(); err != nil {
			return fmt.Errorf("rates: trip breaker: %w", err)
		}
	}
	return nil
}

// parseHistoryRate extracts the trailing decimal amount from a history
// member encoded as "<unixnano>:<uuid>:<rate>".
func parseHistoryRate(member string) (decimal.Decimal, bool) {
	idx := -1
	for i := len(member) - 1; i >= 0; i-- {
		if member[i] == ':' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return decimal.Decimal{}, false
	}
	rate, err := decimal.NewFromString(member[idx+1:])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return rate, true
}

// ToUSD converts an amount in NGN or CNY to its USD equivalent using the
// current cross rates, for priority scoring at webhook ingestion.
func (e *Engine) ToUSD(ctx context.Context, currency string, amount decimal.Decimal) (decimal.Decimal, error) {
	r, err := e.GetRates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	switch currency {
	case "NGN":
		if r.NGNPerUSD.IsZero() {
			return decimal.Zero, fmt.Errorf("rates: ngn_per_usd is zero")
		}
		return money.RoundAmount(amount.Div(r.NGNPerUSD)), nil
	case "CNY":
		if r.CNYPerUSD.IsZero() {
			return decimal.Zero, fmt.Errorf("rates: cny_per_usd is zero")
		}
		return money.RoundAmount(amount.Div(r.CNYPerUSD)), nil
	default:
		return decimal.Zero, ErrUnsupportedPair
	}
}

// CircuitBreakerOpen reports whether the volatility breaker is currently tripped.
func (e *Engine) CircuitBreakerOpen(ctx context.Context) (bool, error) {
	n, err := e.rdb.Exists(ctx, breakerKey).Result()
	if err != nil {
		return false, fmt.Errorf("rates: check breaker: %w", err)
	}
	return n > 0, nil
}
