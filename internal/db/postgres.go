package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradeflow-africa/matching-core/internal/security"
)

// PostgresStore is the system of record for traders, transactions,
// matches, and matching-pool rows.
type PostgresStore struct {
	pool *pgxpool.Pool
	box  *security.Box
}

// WithBox attaches the field-encryption envelope used to seal/open
// encrypted_bvn and supplier_account_enc. A nil box (the zero value)
// leaves those columns untouched as opaque bytes, which is what every
// existing caller that never calls WithBox gets today.
func (s *PostgresStore) WithBox(box *security.Box) *PostgresStore {
	s.box = box
	return s
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for Matching Core")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Matching core schema initialized")
	return nil
}

// GetPool exposes the underlying connection pool. Nothing in this
// repository calls it: the matching orchestrator writes each match row,
// status change and pool-row update through its Store interface as
// separate statements, not inside one transaction.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
