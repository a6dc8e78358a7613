package matching

import (
	"context"

	"github.com/tradeflow-africa/matching-core/internal/db"
	"github.com/tradeflow-africa/matching-core/internal/rates"
)

// postgresStore adapts *db.PostgresStore to Store. Every method but
// SaveCycleReport is promoted directly through embedding; SaveCycleReport
// needs a CycleSummary -> db.CycleReport conversion since the two types'
// fields aren't named identically (Timeouts here maps onto ExpiredCount
// there — RunCycle's own pool-entry timeout sweep is what populates it,
// not internal/expiry, which only sweeps stale INITIATED transactions
// that never entered the pool).
type postgresStore struct {
	*db.PostgresStore
}

// NewPostgresStore wraps a live Postgres store for use as the
// orchestrator's Store collaborator.
func NewPostgresStore(s *db.PostgresStore) Store {
	return postgresStore{s}
}

func (a postgresStore) SaveCycleReport(ctx context.Context, r CycleSummary) error {
	return a.PostgresStore.SaveCycleReport(ctx, db.CycleReport{
		CycleID:            r.CycleID,
		StartedAt:          r.StartedAt,
		CompletedAt:        r.CompletedAt,
		DurationMs:         r.DurationMs,
		PoolSizeStartBuy:   r.PoolSizeStartBuy,
		PoolSizeStartSell:  r.PoolSizeStartSell,
		PoolSizeStartTotal: r.PoolSizeStartTotal,
		ExactCount:         r.ExactCount,
		MultiCount:         r.MultiCount,
		PartialCount:       r.PartialCount,
		ExpiredCount:       r.Timeouts,
		TotalMatched:       r.TotalMatched,
		MatchingEfficiency: r.MatchingEfficiency,
	})
}

// rateEngine adapts *rates.Engine to RateSource.
type rateEngine struct {
	*rates.Engine
}

// NewRateSource wraps a live rate engine for use as the orchestrator's
// RateSource collaborator.
func NewRateSource(e *rates.Engine) RateSource {
	return rateEngine{e}
}

func (a rateEngine) GetRates(ctx context.Context) (*CurrentRates, error) {
	r, err := a.Engine.GetRates(ctx)
	if err != nil {
		return nil, err
	}
	return &CurrentRates{NGNPerUSD: r.NGNPerUSD, CNYPerUSD: r.CNYPerUSD, NGNPerCNY: r.NGNPerCNY}, nil
}
