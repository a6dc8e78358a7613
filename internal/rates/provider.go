// Package rates implements the FX rate engine: provider abstraction,
// Redis-backed caching and rolling history, the volatility circuit
// breaker, fee tiers, and quote minting.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is a single fetch of the two USD cross rates the engine needs.
type Snapshot struct {
	NGNPerUSD decimal.Decimal
	CNYPerUSD decimal.Decimal
}

// Provider fetches the latest USD cross rates. There is no ecosystem
// library suited to a single bespoke upstream's response shape, so each
// provider speaks to its source directly and the engine depends only on
// this interface.
type Provider interface {
	FetchRates(ctx context.Context) (Snapshot, error)
}

// MockProvider returns a fixed pair, for local development and tests.
type MockProvider struct {
	NGNPerUSD decimal.Decimal
	CNYPerUSD decimal.Decimal
}

// NewMockProvider returns a MockProvider seeded with plausible NGN/CNY
// cross rates.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		NGNPerUSD: decimal.NewFromFloat(1550.00),
		CNYPerUSD: decimal.NewFromFloat(7.25),
	}
}

func (m *MockProvider) FetchRates(ctx context.Context) (Snapshot, error) {
	return Snapshot{NGNPerUSD: m.NGNPerUSD, CNYPerUSD: m.CNYPerUSD}, nil
}

// HTTPProvider fetches rates from a configured JSON endpoint returning
// {"ngn_per_usd": "...", "cny_per_usd": "..."}.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPProvider builds an HTTPProvider with a bounded client timeout,
// matching the 10-30s external-call budget the rest of this service uses.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type httpRatesPayload struct {
	NGNPerUSD string `json:"ngn_per_usd"`
	CNYPerUSD string `json:"cny_per_usd"`
}

func (p *HTTPProvider) FetchRates(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rates: build request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rates: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, fmt.Errorf("rates: provider returned status %d", resp.StatusCode)
	}

	var payload httpRatesPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("rates: decode response: %w", err)
	}

	ngn, err := decimal.NewFromString(payload.NGNPerUSD)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rates: parse ngn_per_usd: %w", err)
	}
	cny, err := decimal.NewFromString(payload.CNYPerUSD)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rates: parse cny_per_usd: %w", err)
	}

	return Snapshot{NGNPerUSD: ngn, CNYPerUSD: cny}, nil
}
