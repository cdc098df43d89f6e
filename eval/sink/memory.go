// Package sink holds durable diagnostic mirrors of the evaluator's
// event stream: append-only records of what Emitter saw, kept for
// observability and audit. None of these sinks are ever read back
// into a GraphStore — evaluator state lives and dies with one
// Evaluate call, by design.
package sink

import (
	"context"
	"sync"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

// MemorySink retains every event it is handed, in emission order. It
// implements emit.Emitter directly (no separate adapter), for tests
// and short-lived processes that want a durable-looking mirror without
// standing up a database.
//
// Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []emit.Event
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, e emit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *MemorySink) EmitBatch(ctx context.Context, events []emit.Event) error {
	for _, e := range events {
		if err := s.Emit(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemorySink) Flush(context.Context) error { return nil }

// Events returns a copy of every event recorded so far, in emission
// order.
func (s *MemorySink) Events() []emit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]emit.Event(nil), s.events...)
}

// Close discards the sink's buffered events. Present so MemorySink
// satisfies the same io.Closer-shaped lifecycle as the SQL-backed
// sinks, even though there is no resource to release.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}
