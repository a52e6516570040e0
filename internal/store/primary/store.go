package primary

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"aide/internal/store"
)

// StoreImpl backs the job queue, contact and message stores with a single
// sqlite database file.
type StoreImpl struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	task          TEXT NOT NULL,
	chat_id       TEXT NOT NULL,
	source        TEXT NOT NULL,
	phone_number  TEXT,
	priority      INTEGER NOT NULL DEFAULT 50,
	status        TEXT NOT NULL DEFAULT 'pending',
	session_code  TEXT,
	retry_count   INTEGER NOT NULL DEFAULT 0,
	result        TEXT,
	error         TEXT,
	created_at    DATETIME NOT NULL,
	started_at    DATETIME,
	completed_at  DATETIME,
	failed_at     DATETIME
);
CREATE INDEX IF NOT EXISTS idx_jobs_pending ON jobs(status, priority DESC, created_at ASC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_single_active ON jobs(status) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS contacts (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	phone_number        TEXT NOT NULL UNIQUE,
	display_name        TEXT,
	trust_level         TEXT NOT NULL DEFAULT 'unknown',
	command_permissions TEXT NOT NULL DEFAULT '[]',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id    TEXT NOT NULL,
	sender     TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at DESC);
`

// NewPrimaryStore opens (creating if necessary) the sqlite database at dsn
// and ensures the schema exists.
func NewPrimaryStore(ctx context.Context, dsn string) (*StoreImpl, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %q: %w", dsn, err)
	}
	// sqlite allows a single writer; one pooled connection avoids
	// SQLITE_BUSY under concurrent producers and keeps :memory: databases
	// on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %q: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &StoreImpl{db: db}, nil
}

func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *StoreImpl) Close() error {
	return s.db.Close()
}

// Ensure StoreImpl satisfies the store interfaces.
var (
	_ store.JobQueue     = (*StoreImpl)(nil)
	_ store.ContactStore = (*StoreImpl)(nil)
	_ store.MessageStore = (*StoreImpl)(nil)
)
