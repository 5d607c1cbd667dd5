// Package postgres provides a PostgreSQL-backed [history.Store].
//
// Entries live in a single utterance_log table with a GIN full-text index
// over the inserted text. [Migrate] creates the table and indexes and is safe
// to run on every startup.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	_ = store.Append(ctx, entry)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUtteranceLog = `
CREATE TABLE IF NOT EXISTS utterance_log (
    id           BIGSERIAL    PRIMARY KEY,
    session_id   TEXT         NOT NULL,
    text         TEXT         NOT NULL,
    raw_text     TEXT         NOT NULL DEFAULT '',
    action       TEXT         NOT NULL,
    provider     TEXT         NOT NULL DEFAULT '',
    timestamp    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    duration_ns  BIGINT       NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_utterance_log_session_id
    ON utterance_log (session_id);

CREATE INDEX IF NOT EXISTS idx_utterance_log_timestamp
    ON utterance_log (timestamp);

CREATE INDEX IF NOT EXISTS idx_utterance_log_fts
    ON utterance_log USING GIN (to_tsvector('simple', text));
`

// Migrate creates the history schema if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlUtteranceLog); err != nil {
		return fmt.Errorf("history migrate: %w", err)
	}
	return nil
}
