// Package store is the durable layer: tasks, documents and the
// task_documents link table, kept in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/tasklink/pkg/model"
	"github.com/mattn/go-sqlite3"
)

const (
	// timeLayout has a fixed-width fraction so stored timestamps sort
	// lexically in the same order as chronologically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"

	defaultBusyRetries = 5
	maxBusyRetries     = 20
	retryBaseDelay     = 20 * time.Millisecond
	retryMaxDelay      = 500 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'new' CHECK (status IN ('new', 'in_progress', 'blocked', 'done')),
	priority    TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
	owner       TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL DEFAULT '',
	due_date    TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	text        TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	source_type TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

CREATE TABLE IF NOT EXISTS task_documents (
	task_id     INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	created_at  TEXT NOT NULL,
	created_by  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (task_id, document_id)
);
CREATE INDEX IF NOT EXISTS idx_task_documents_document ON task_documents(document_id, created_at);
`

// Store owns the database handle. All reads and writes go through
// transactions started by WithTx.
type Store struct {
	db      *sql.DB
	retries int
	now     func() time.Time
}

type Option func(*Store)

// WithBusyRetries bounds how many times a transaction is replayed when
// SQLite reports the database as busy or locked. Values above
// maxBusyRetries are capped.
func WithBusyRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = min(n, maxBusyRetries)
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open creates the database file if needed and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, retries: defaultBusyRetries, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction and commits if fn returns nil.
// Busy/locked failures replay the whole transaction with backoff; once the
// retries are spent the error is reported as model.ErrStorageUnavailable.
// fn may run more than once and must not keep state across attempts.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	err := retryOnBusy(ctx, s.retries, func() error {
		return s.runTx(ctx, fn)
	})
	if err != nil && isBusy(err) {
		return model.Unavailable(err)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{tx: sqlTx, now: s.now}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// retryOnBusy retries f while it fails with SQLITE_BUSY or SQLITE_LOCKED,
// backing off exponentially with jitter. Any other error returns at once.
func retryOnBusy(ctx context.Context, maxRetries int, f func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = f()
		if err == nil || !isBusy(err) || attempt == maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return err
}

// backoffDelay is the wait before retry attempt+1: doubling from
// retryBaseDelay up to retryMaxDelay, then jittered by ±25%.
func backoffDelay(attempt int) time.Duration {
	delay := retryMaxDelay
	if attempt < 5 {
		delay = min(retryBaseDelay<<uint(attempt), retryMaxDelay)
	}
	jitter := time.Duration(rand.IntN(int(delay / 2)))
	return delay - delay/4 + jitter
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
