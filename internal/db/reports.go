package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CycleReport summarizes one completed matching cycle for observability.
type CycleReport struct {
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
	ExpiredCount int

	TotalMatched       decimal.Decimal
	MatchingEfficiency decimal.Decimal
}

// SaveCycleReport persists the summary of one matching cycle run.
func (s *PostgresStore) SaveCycleReport(ctx context.Context, r CycleReport) error {
	const q = `
		INSERT INTO cycle_reports
			(cycle_id, started_at, completed_at, duration_ms,
			 pool_size_start_buy, pool_size_start_sell, pool_size_start_total,
			 exact_count, multi_count, partial_count, expired_count,
			 total_matched, matching_efficiency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (cycle_id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			duration_ms = EXCLUDED.duration_ms,
			pool_size_start_buy = EXCLUDED.pool_size_start_buy,
			pool_size_start_sell = EXCLUDED.pool_size_start_sell,
			pool_size_start_total = EXCLUDED.pool_size_start_total,
			exact_count = EXCLUDED.exact_count,
			multi_count = EXCLUDED.multi_count,
			partial_count = EXCLUDED.partial_count,
			expired_count = EXCLUDED.expired_count,
			total_matched = EXCLUDED.total_matched,
			matching_efficiency = EXCLUDED.matching_efficiency
	`
	_, err := s.pool.Exec(ctx, q,
		r.CycleID, r.StartedAt, r.CompletedAt, r.DurationMs,
		r.PoolSizeStartBuy, r.PoolSizeStartSell, r.PoolSizeStartTotal,
		r.ExactCount, r.MultiCount, r.PartialCount, r.ExpiredCount,
		r.TotalMatched, r.MatchingEfficiency,
	)
	if err != nil {
		return fmt.Errorf("db: save cycle report %s: %w", r.CycleID, err)
	}
	return nil
}
