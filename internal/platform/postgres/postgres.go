// Package postgres opens the database and applies the schema.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS token_balances (
		address TEXT PRIMARY KEY,
		amount  NUMERIC(20,0) NOT NULL CHECK (amount >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS token_allowances (
		owner   TEXT NOT NULL,
		spender TEXT NOT NULL,
		amount  NUMERIC(20,0) NOT NULL CHECK (amount >= 0),
		PRIMARY KEY (owner, spender)
	)`,
	`CREATE TABLE IF NOT EXISTS vouches (
		voucher    TEXT NOT NULL,
		vouchee    TEXT NOT NULL,
		weight     INTEGER NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		seq        BIGSERIAL,
		PRIMARY KEY (voucher, vouchee)
	)`,
	`CREATE INDEX IF NOT EXISTS vouches_vouchee_idx ON vouches (vouchee, seq)`,
	`CREATE TABLE IF NOT EXISTS pools (
		id           UUID PRIMARY KEY,
		seq          BIGSERIAL,
		creator      TEXT NOT NULL,
		name         TEXT NOT NULL,
		state        TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		max_members  INTEGER NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		snapshot     JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pools_creator_idx ON pools (creator, seq)`,
	`CREATE TABLE IF NOT EXISTS registry_settings (
		id             SMALLINT PRIMARY KEY CHECK (id = 1),
		owner          TEXT NOT NULL,
		treasury       TEXT NOT NULL,
		deployment_fee NUMERIC(20,0) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_outbox (
		id           UUID PRIMARY KEY,
		seq          BIGSERIAL,
		event_type   TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		actor        TEXT NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		payload      JSONB NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS event_outbox_unpublished_idx ON event_outbox (seq) WHERE published_at IS NULL`,
}
