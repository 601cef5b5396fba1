package scoreboard

import (
	"context"
	"database/sql"
	"fmt"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		username TEXT PRIMARY KEY,
		address TEXT NOT NULL DEFAULT '',
		hugs DOUBLE PRECISION NOT NULL DEFAULT 0,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		last_played BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		level INTEGER NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		post_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		posted_at BIGINT NOT NULL,
		closed_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		round_id TEXT NOT NULL,
		username TEXT NOT NULL,
		reply_id TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL,
		correct INTEGER NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		PRIMARY KEY (round_id, username)
	)`,
	`CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		round_id TEXT NOT NULL,
		username TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		amount DOUBLE PRECISION NOT NULL,
		token TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		tx_hash TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payouts_status_idx ON payouts (status)`,
}

// Apply creates the scoreboard tables. Statements are idempotent.
func Apply(ctx context.Context, db execer) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
