// Package database provides database access for the engine
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

const schema = `
	-- Balances table, one row per player and currency (GLI-19 §2.5.7)
	CREATE TABLE IF NOT EXISTS balances (
		player_id VARCHAR(255) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		amount BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (player_id, currency)
	);

	-- Transactions table (GLI-19 §2.5.6, §2.5.7)
	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		player_id VARCHAR(255) NOT NULL,
		type VARCHAR(50) NOT NULL,
		amount BIGINT NOT NULL,
		currency VARCHAR(3) NOT NULL,
		balance_before BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		game_id VARCHAR(255),
		category VARCHAR(50),
		reference VARCHAR(255),
		created_at TIMESTAMP NOT NULL
	);

	-- Game Sessions table (GLI-19 §4.3)
	CREATE TABLE IF NOT EXISTS game_sessions (
		id UUID PRIMARY KEY,
		player_id VARCHAR(255) NOT NULL,
		game_id VARCHAR(255) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		last_activity_at TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		rounds_played BIGINT NOT NULL DEFAULT 0,
		total_bet BIGINT NOT NULL DEFAULT 0,
		total_win BIGINT NOT NULL DEFAULT 0,
		biggest_win BIGINT NOT NULL DEFAULT 0,
		win_streak INTEGER NOT NULL DEFAULT 0,
		loss_streak INTEGER NOT NULL DEFAULT 0,
		longest_win_streak INTEGER NOT NULL DEFAULT 0,
		longest_loss_streak INTEGER NOT NULL DEFAULT 0
	);

	-- Game records, one per resolved outcome (GLI-19 §2.8.2, §4.14)
	CREATE TABLE IF NOT EXISTS game_records (
		id VARCHAR(255) PRIMARY KEY,
		kind VARCHAR(50) NOT NULL,
		player_id VARCHAR(255) NOT NULL,
		game_id VARCHAR(255) NOT NULL,
		bet_amount BIGINT NOT NULL,
		win_amount BIGINT NOT NULL,
		currency VARCHAR(3) NOT NULL,
		payload JSONB,
		created_at TIMESTAMP NOT NULL
	);

	-- Audit Events table (GLI-19 §2.8.8)
	CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		type VARCHAR(100) NOT NULL,
		severity VARCHAR(20) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		player_id VARCHAR(255),
		session_id VARCHAR(255),
		game_id VARCHAR(255),
		description TEXT NOT NULL,
		data JSONB,
		component VARCHAR(100) NOT NULL
	);

	-- Progressive jackpot pools, minor units with fractional accrual
	CREATE TABLE IF NOT EXISTS jackpot_pools (
		id VARCHAR(255) PRIMARY KEY,
		amount NUMERIC(24, 6) NOT NULL,
		claims INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL
	);

	-- Operator gaming controls, scope '*' is the system-wide switch (GLI-19 §2.4)
	CREATE TABLE IF NOT EXISTS game_controls (
		scope VARCHAR(255) PRIMARY KEY,
		enabled BOOLEAN NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		updated_by VARCHAR(255) NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Player limits, pending values wait out the cooling-off (GLI-19 §2.5.5)
	CREATE TABLE IF NOT EXISTS player_limits (
		player_id VARCHAR(255) PRIMARY KEY,
		daily_wager BIGINT NOT NULL DEFAULT 0,
		daily_loss BIGINT NOT NULL DEFAULT 0,
		pending_wager BIGINT,
		pending_loss BIGINT,
		pending_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	);

	-- Wagers and wins counted against the rolling limit window
	CREATE TABLE IF NOT EXISTS limit_activity (
		id BIGSERIAL PRIMARY KEY,
		player_id VARCHAR(255) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		bet BIGINT NOT NULL DEFAULT 0,
		win BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_transactions_player ON transactions(player_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);
	CREATE INDEX IF NOT EXISTS idx_game_sessions_player_game ON game_sessions(player_id, game_id, status);
	CREATE INDEX IF NOT EXISTS idx_game_records_player ON game_records(player_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_limit_activity_player ON limit_activity(player_id, currency, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_events_player ON audit_events(player_id);
`

// Migrate creates all required tables
// Based on GLI-19 §2.8 Information to be Maintained
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Migrate creates all required tables
func (db *DB) Migrate(ctx context.Context) error {
	return Migrate(ctx, db.DB)
}

// Reset drops all tables (for testing)
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		DROP TABLE IF EXISTS limit_activity CASCADE;
		DROP TABLE IF EXISTS player_limits CASCADE;
		DROP TABLE IF EXISTS game_controls CASCADE;
		DROP TABLE IF EXISTS jackpot_pools CASCADE;
		DROP TABLE IF EXISTS audit_events CASCADE;
		DROP TABLE IF EXISTS game_records CASCADE;
		DROP TABLE IF EXISTS game_sessions CASCADE;
		DROP TABLE IF EXISTS transactions CASCADE;
		DROP TABLE IF EXISTS balances CASCADE;
	`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE limit_activity, player_limits, game_controls, jackpot_pools, audit_events, game_records, game_sessions,
		               transactions, balances CASCADE;
	`)
	return err
}
