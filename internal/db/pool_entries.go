package db

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// InsertPoolEntry creates the durable matching_pool row backing a volatile
// Redis pool entry.
func (s *PostgresStore) InsertPoolEntry(ctx context.Context, e *models.PoolEntry) error {
	const q = `
		INSERT INTO matching_pool
			(id, transaction_id, trader_id, reference, direction, currency,
			 source_amount, target_amount, priority, is_active, entered_pool_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.pool.Exec(ctx, q,
		e.ID, e.TransactionID, e.TraderID, e.Reference, e.Direction, e.Currency,
		e.SourceAmount, e.TargetAmount, e.Priority, e.IsActive, e.EnteredPoolAt, e.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("db: insert pool entry %s: %w", e.ID, err)
	}
	return nil
}

// DeactivatePoolEntry marks a matching_pool row inactive once the matcher
// has consumed it (fully or via expiry), keeping the durable copy in sync
// with the Redis store's Remove.
func (s *PostgresStore) DeactivatePoolEntry(ctx context.Context, entryID string) error {
	const q = `UPDATE matching_pool SET is_active = FALSE WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, entryID); err != nil {
		return fmt.Errorf("db: deactivate pool entry %s: %w", entryID, err)
	}
	return nil
}

// UpdatePoolEntryAmount persists a partial-fill's new remaining amount.
func (s *PostgresStore) UpdatePoolEntryAmount(ctx context.Context, entryID string, newAmount decimal.Decimal) error {
	const q = `UPDATE matching_pool SET source_amount = $2 WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, entryID, newAmount); err != nil {
		return fmt.Errorf("db: update pool entry amount %s: %w", entryID, err)
	}
	return nil
}

// ListActivePoolEntries loads every active durable pool row for a lane.
// Nothing in this repository calls it; the engine does not rebuild the
// Redis pool from these rows at startup.
func (s *PostgresStore) ListActivePoolEntries(ctx context.Context, direction models.Direction, currency string) ([]*models.PoolEntry, error) {
	const q = `
		SELECT id, transaction_id, trader_id, reference, direction, currency,
		       source_amount, target_amount, priority, is_active, entered_pool_at, expires_at
		FROM matching_pool
		WHERE direction = $1 AND currency = $2 AND is_active = TRUE
	`
	rows, err := s.pool.Query(ctx, q, direction, currency)
	if err != nil {
		return nil, fmt.Errorf("db: list active pool entries: %w", err)
	}
	defer rows.Close()

	var out []*models.PoolEntry
	for rows.Next() {
		var e models.PoolEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.TraderID, &e.Reference, &e.Direction,
			&e.Currency, &e.SourceAmount, &e.TargetAmount, &e.Priority, &e.IsActive,
			&e.EnteredPoolAt, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db: scan pool entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
