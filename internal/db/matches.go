package db

import (
	"context"
	"fmt"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// InsertMatch persists one Match row produced by a matching cycle.
func (s *PostgresStore) InsertMatch(ctx context.Context, m *models.Match) error {
	const q = `
		INSERT INTO matches
			(id, cycle_id, buy_txn_id, sell_txn_id, match_type, matched_amount,
			 matched_rate, status, matched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, q,
		m.ID, m.CycleID, m.BuyTxnID, m.SellTxnID, m.MatchType, m.MatchedAmount,
		m.MatchedRate, m.Status, m.MatchedAt,
	)
	if err != nil {
		return fmt.Errorf("db: insert match %s: %w", m.ID, err)
	}
	return nil
}

// ListMatchesByCycle returns every match recorded under one cycle ID.
func (s *PostgresStore) ListMatchesByCycle(ctx context.Context, cycleID string) ([]*models.Match, error) {
	const q = `
		SELECT id, cycle_id, buy_txn_id, sell_txn_id, match_type, matched_amount,
		       matched_rate, status, matched_at, settlement_reference, settled_at
		FROM matches WHERE cycle_id = $1
	`
	rows, err := s.pool.Query(ctx, q, cycleID)
	if err != nil {
		return nil, fmt.Errorf("db: list matches for cycle %s: %w", cycleID, err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.CycleID, &m.BuyTxnID, &m.SellTxnID, &m.MatchType,
			&m.MatchedAmount, &m.MatchedRate, &m.Status, &m.MatchedAt,
			&m.SettlementReference, &m.SettledAt); err != nil {
			return nil, fmt.Errorf("db: scan match: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
