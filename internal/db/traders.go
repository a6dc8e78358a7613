package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// ErrNotFound is returned by single-row lookups that match no row.
var ErrNotFound = errors.New("db: not found")

// GetTrader loads a trader by ID.
func (s *PostgresStore) GetTrader(ctx context.Context, id string) (*models.Trader, error) {
	const q = `
		SELECT id, business_name, kyc_tier, monthly_limit_usd, monthly_used_usd,
		       hashed_pin, account_status, encrypted_bvn, completed_txn_count,
		       created_at, updated_at
		FROM traders WHERE id = $1
	`
	row := s.pool.QueryRow(ctx, q, id)

	var t models.Trader
	var kycTier int
	if err := row.Scan(&t.ID, &t.BusinessName, &kycTier, &t.MonthlyLimitUSD, &t.MonthlyUsedUSD,
		&t.HashedPIN, &t.AccountStatus, &t.EncryptedBVN, &t.CompletedTxnCount,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db: get trader %s: %w", id, err)
	}
	t.KYCTier = models.KYCTier(kycTier)

	if s.box != nil && len(t.EncryptedBVN) > 0 {
		plain, err := s.box.Decrypt(t.EncryptedBVN)
		if err != nil {
			return nil, fmt.Errorf("db: decrypt bvn for trader %s: %w", id, err)
		}
		t.EncryptedBVN = plain
	}

	return &t, nil
}

// IncrementMonthlyUsed adds amountUSD to a trader's running monthly total,
// for the settlement step once a matched transaction settles; nothing in
// this repository calls it.
func (s *PostgresStore) IncrementMonthlyUsed(ctx context.Context, traderID string, amountUSD decimal.Decimal) error {
	const q = `
		UPDATE traders SET monthly_used_usd = monthly_used_usd + $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := s.pool.Exec(ctx, q, traderID, amountUSD); err != nil {
		return fmt.Errorf("db: increment monthly used for %s: %w", traderID, err)
	}
	return nil
}

// ResetMonthlyUsed zeroes every trader's monthly usage counter. Intended
// to be invoked by an external monthly scheduler; this core only exposes
// the operation.
func (s *PostgresStore) ResetMonthlyUsed(ctx context.Context) error {
	const q = `UPDATE traders SET monthly_used_usd = 0, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("db: reset monthly used: %w", err)
	}
	return nil
}
