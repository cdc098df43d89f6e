package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ridgewaybuild/depeval/eval/emit"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLSink is a networked, append-only mirror of the event stream,
// shared across every evaluator instance in a fleet so diagnostics from
// concurrent Evaluate runs land in one place.
//
// The DSN format matches github.com/go-sql-driver/mysql, e.g.
// "user:pass@tcp(127.0.0.1:3306)/depeval?parseTime=true".
type MySQLSink struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLSink opens a connection pool against dsn and ensures the
// event log table exists.
func NewMySQLSink(dsn string) (*MySQLSink, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sink: ping mysql: %w", err)
	}

	s := &MySQLSink{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLSink) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS diagnostic_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			kind INT NOT NULL,
			location VARCHAR(512) NOT NULL,
			tag VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			payload MEDIUMBLOB,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_tag (tag)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sink: create diagnostic_events table: %w", err)
	}
	return nil
}

func (s *MySQLSink) Emit(ctx context.Context, e emit.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("sink: mysql sink is closed")
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

func (s *MySQLSink) EmitBatch(ctx context.Context, events []emit.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("sink: mysql sink is closed")
	}
	s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
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

func (s *MySQLSink) Flush(context.Context) error { return nil }

// CountByTag returns how many events have been recorded under tag.
func (s *MySQLSink) CountByTag(ctx context.Context, tag string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnostic_events WHERE tag = ?", tag).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sink: count by tag: %w", err)
	}
	return count, nil
}

// Close closes the connection pool. Safe to call more than once.
func (s *MySQLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
