package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ridgewaybuild/depeval/eval/emit"
	_ "modernc.org/sqlite"
)

// SQLiteSink is a single-file, append-only mirror of the event stream,
// for local runs and development where a full MySQL instance is
// overkill. WAL mode is enabled so a concurrently-running reader (e.g.
// a tailing CLI) never blocks the writer.
type SQLiteSink struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteSink opens (and, if needed, creates) the event log at path.
// Use ":memory:" for a throwaway in-process database.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: set busy_timeout: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS diagnostic_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind INTEGER NOT NULL,
			location TEXT NOT NULL,
			tag TEXT NOT NULL,
			message TEXT NOT NULL,
			payload BLOB,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sink: create diagnostic_events table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_events_tag ON diagnostic_events(tag)"); err != nil {
		return fmt.Errorf("sink: create idx_events_tag: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Emit(ctx context.Context, e emit.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("sink: sqlite sink is closed")
	}
	s.mu.RUnlock()

	const insert = `
		INSERT INTO diagnostic_events (kind, location, tag, message, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, insert, int(e.Kind), e.Location, e.Tag, e.Message(), e.Bytes())
	if err != nil {
		return fmt.Errorf("sink: insert event: %w", err)
	}
	return nil
}

func (s *SQLiteSink) EmitBatch(ctx context.Context, events []emit.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("sink: sqlite sink is closed")
	}
	s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink: begin transaction: %w", err)
	}
	const insert = `
		INSERT INTO diagnostic_events (kind, location, tag, message, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, e := range events {
		if _, err := tx.ExecContext(ctx, insert, int(e.Kind), e.Location, e.Tag, e.Message(), e.Bytes()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sink: insert event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sink: commit batch: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Flush(context.Context) error { return nil }

// CountByTag returns how many events have been recorded under tag, for
// tests and diagnostics.
func (s *SQLiteSink) CountByTag(ctx context.Context, tag string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnostic_events WHERE tag = ?", tag).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sink: count by tag: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection. Safe to call more
// than once.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
