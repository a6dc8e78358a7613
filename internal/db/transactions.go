package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// InsertTransaction creates a new INITIATED transaction row. If a Box is
// attached, t.SupplierAccountEnc is treated as plaintext and sealed before
// it hits the wire; callers without a Box get the legacy raw-bytes
// behavior.
func (s *PostgresStore) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	sealed := t.SupplierAccountEnc
	if s.box != nil && len(sealed) > 0 {
		var err error
		sealed, err = s.box.Encrypt(sealed)
		if err != nil {
			return fmt.Errorf("db: encrypt supplier account for %s: %w", t.Reference, err)
		}
	}

	const q = `
		INSERT INTO transactions
			(id, reference, trader_id, direction, source_amount, target_amount,
			 exchange_rate, fee_amount, fee_percentage, supplier_name, supplier_bank,
			 supplier_account_enc, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.pool.Exec(ctx, q,
		t.ID, t.Reference, t.TraderID, t.Direction, t.SourceAmount, t.TargetAmount,
		t.ExchangeRate, t.FeeAmount, t.FeePercentage, t.SupplierName, t.SupplierBank,
		sealed, t.Status, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db: insert transaction %s: %w", t.Reference, err)
	}
	return nil
}

// GetTransactionByReference loads a transaction by its TXN-XXXXXXXX reference.
func (s *PostgresStore) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	const q = `
		SELECT id, reference, trader_id, direction, source_amount, target_amount,
		       exchange_rate, fee_amount, fee_percentage, supplier_name, supplier_bank,
		       supplier_account_enc, status, match_id, settlement_method,
		       funded_at, matched_at, settled_at, created_at, updated_at
		FROM transactions WHERE reference = $1
	`
	return s.scanTransaction(s.pool.QueryRow(ctx, q, reference))
}

// GetTransaction loads a transaction by its primary key.
func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	const q = `
		SELECT id, reference, trader_id, direction, source_amount, target_amount,
		       exchange_rate, fee_amount, fee_percentage, supplier_name, supplier_bank,
		       supplier_account_enc, status, match_id, settlement_method,
		       funded_at, matched_at, settled_at, created_at, updated_at
		FROM transactions WHERE id = $1
	`
	return s.scanTransaction(s.pool.QueryRow(ctx, q, id))
}

func (s *PostgresStore) scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(
		&t.ID, &t.Reference, &t.TraderID, &t.Direction, &t.SourceAmount, &t.TargetAmount,
		&t.ExchangeRate, &t.FeeAmount, &t.FeePercentage, &t.SupplierName, &t.SupplierBank,
		&t.SupplierAccountEnc, &t.Status, &t.MatchID, &t.SettlementMethod,
		&t.FundedAt, &t.MatchedAt, &t.SettledAt, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db: scan transaction: %w", err)
	}

	if s.box != nil && len(t.SupplierAccountEnc) > 0 {
		plain, err := s.box.Decrypt(t.SupplierAccountEnc)
		if err != nil {
			return nil, fmt.Errorf("db: decrypt supplier account for %s: %w", t.ID, err)
		}
		t.SupplierAccountEnc = plain
	}

	return &t, nil
}

// UpdateTransactionStatus persists a status change plus whichever
// lifecycle timestamp the fsm package stamped alongside it.
func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, t *models.Transaction) error {
	const q = `
		UPDATE transactions SET
			status = $2, funded_at = $3, matched_at = $4, settled_at = $5,
			match_id = $6, settlement_method = $7, updated_at = $8
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, q,
		t.ID, t.Status, t.FundedAt, t.MatchedAt, t.SettledAt,
		t.MatchID, t.SettlementMethod, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db: update transaction status %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTransactionAmounts persists adjusted source_amount/fee_amount
// after a classified adjusted-payment ingestion.
func (s *PostgresStore) UpdateTransactionAmounts(ctx context.Context, t *models.Transaction) error {
	const q = `
		UPDATE transactions SET source_amount = $2, fee_amount = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, q, t.ID, t.SourceAmount, t.FeeAmount, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db: update transaction amounts %s: %w", t.ID, err)
	}
	return nil
}

// ListStaleInitiated returns every INITIATED transaction created before
// the cutoff, for the expiry worker's sweep.
func (s *PostgresStore) ListStaleInitiated(ctx context.Context, cutoff time.Time) ([]*models.Transaction, error) {
	const q = `
		SELECT id, reference, trader_id, direction, source_amount, target_amount,
		       exchange_rate, fee_amount, fee_percentage, supplier_name, supplier_bank,
		       supplier_account_enc, status, match_id, settlement_method,
		       funded_at, matched_at, settled_at, created_at, updated_at
		FROM transactions
		WHERE status = $1 AND created_at < $2
	`
	rows, err := s.pool.Query(ctx, q, models.StatusInitiated, cutoff)
	if err != nil {
		return nil, fmt.Errorf("db: list stale initiated: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
