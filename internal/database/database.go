// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/slotswapper/slotswapper/internal/config"
)

// DSN builds a libpq-compatible connection string from the database config.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode,
	)
}

// NewPool creates and validates a pgxpool connection pool, then runs the
// schema migrations. It retries up to 5 times to accommodate containers
// starting up.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				break
			}
			pool.Close()
			err = fmt.Errorf("ping: database not ready")
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}

// migrations are applied in order on every start; each statement is
// idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         UUID PRIMARY KEY,
		owner_id   UUID NOT NULL REFERENCES users(id),
		title      TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time   TIMESTAMPTZ NOT NULL,
		status     TEXT NOT NULL DEFAULT 'BUSY'
			CHECK (status IN ('BUSY', 'SWAPPABLE', 'SWAP_PENDING')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_time > start_time)
	)`,
	// swap_requests is an audit trail: rows outlive the events they reference,
	// so the event columns carry no foreign keys.
	`CREATE TABLE IF NOT EXISTS swap_requests (
		id                 UUID PRIMARY KEY,
		requester_id       UUID NOT NULL REFERENCES users(id),
		offered_event_id   UUID NOT NULL,
		requested_event_id UUID NOT NULL,
		status             TEXT NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED')),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (offered_event_id <> requested_event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_owner ON events (owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_status ON events (status)`,
	`CREATE INDEX IF NOT EXISTS idx_swaps_offered ON swap_requests (offered_event_id) WHERE status = 'PENDING'`,
	`CREATE INDEX IF NOT EXISTS idx_swaps_requested ON swap_requests (requested_event_id) WHERE status = 'PENDING'`,
}

// Migrate creates the schema if it does not already exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
