package config

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Create tables if they don't exist
	if err := CreateTables(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(36) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		name_arabic VARCHAR(255) NOT NULL DEFAULT '',
		tax_number VARCHAR(50) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone VARCHAR(20) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS company_users (
		company_id VARCHAR(36) NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id VARCHAR(36) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permissions VARCHAR(10) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (company_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS company_sequences (
		company_id VARCHAR(36) PRIMARY KEY REFERENCES companies(id) ON DELETE CASCADE,
		current_sequence BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(36) PRIMARY KEY,
		code VARCHAR(20) NOT NULL,
		name VARCHAR(255) NOT NULL,
		name_arabic VARCHAR(255) NOT NULL DEFAULT '',
		type VARCHAR(50) NOT NULL,
		sub_type VARCHAR(50) NOT NULL DEFAULT '',
		parent_id VARCHAR(36) CONSTRAINT fk_accounts_parent REFERENCES accounts(id),
		level INTEGER NOT NULL DEFAULT 1,
		is_parent BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		company_id VARCHAR(36) NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		created_by VARCHAR(36) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_accounts_code UNIQUE (code),
		CONSTRAINT ck_accounts_type CHECK (type IN ('assets', 'liabilities', 'equity', 'revenue', 'expenses'))
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id VARCHAR(36) PRIMARY KEY,
		entry_number VARCHAR(50) NOT NULL,
		date DATE NOT NULL,
		description TEXT NOT NULL,
		description_arabic TEXT NOT NULL DEFAULT '',
		reference VARCHAR(100) NOT NULL DEFAULT '',
		total_debit NUMERIC(15, 2) NOT NULL,
		total_credit NUMERIC(15, 2) NOT NULL,
		company_id VARCHAR(36) NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		created_by VARCHAR(36) NOT NULL,
		reversal_of VARCHAR(36) REFERENCES journal_entries(id) ON DELETE SET NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT uq_journal_entries_entry_number UNIQUE (entry_number)
	)`,
	`CREATE TABLE IF NOT EXISTS journal_entry_details (
		id VARCHAR(36) PRIMARY KEY,
		journal_entry_id VARCHAR(36) NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
		account_id VARCHAR(36) NOT NULL CONSTRAINT fk_details_account REFERENCES accounts(id),
		line_no INTEGER NOT NULL,
		debit NUMERIC(15, 2) NOT NULL DEFAULT 0,
		credit NUMERIC(15, 2) NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		description_arabic TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT ck_details_non_negative CHECK (debit >= 0 AND credit >= 0),
		CONSTRAINT ck_details_one_side CHECK ((debit > 0) <> (credit > 0))
	)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id VARCHAR(36) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		company_id VARCHAR(36) NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		debit_balance NUMERIC(15, 2) NOT NULL DEFAULT 0,
		credit_balance NUMERIC(15, 2) NOT NULL DEFAULT 0,
		net_balance NUMERIC(15, 2) NOT NULL DEFAULT 0,
		last_updated TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_events (
		id VARCHAR(36) PRIMARY KEY,
		company_id VARCHAR(36) NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		user_id VARCHAR(36) NOT NULL,
		sequence_number BIGINT NOT NULL,
		action VARCHAR(20) NOT NULL,
		entry_id VARCHAR(36) NOT NULL,
		entry_number VARCHAR(50) NOT NULL,
		total_debit NUMERIC(15, 2) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		UNIQUE (company_id, sequence_number)
	)`,
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_accounts_company_id ON accounts(company_id)",
	"CREATE INDEX IF NOT EXISTS idx_accounts_parent_id ON accounts(parent_id)",
	"CREATE INDEX IF NOT EXISTS idx_journal_entries_company_date ON journal_entries(company_id, date DESC)",
	// An entry is reversed at most once
	"CREATE UNIQUE INDEX IF NOT EXISTS uq_journal_entries_reversal_of ON journal_entries(reversal_of)",
	"CREATE INDEX IF NOT EXISTS idx_details_entry_id ON journal_entry_details(journal_entry_id)",
	"CREATE INDEX IF NOT EXISTS idx_details_account_id ON journal_entry_details(account_id)",
	"CREATE INDEX IF NOT EXISTS idx_ledger_events_company_seq ON ledger_events(company_id, sequence_number)",
}

// CreateTables creates the necessary tables in the database
func CreateTables(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Indexes are not critical
			logger.Warn("failed to create index", zap.String("statement", idx), zap.Error(err))
		}
	}

	return nil
}
