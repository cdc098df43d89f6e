// Package emit provides the diagnostic event sink interface consumed by
// a graph evaluation and a handful of concrete implementations.
package emit

import "context"

// Emitter receives diagnostic events produced during evaluation.
//
// Implementations should be:
//   - Non-blocking: emitting an event must not meaningfully slow down
//     the worker that produced it.
//   - Thread-safe: Emit may be called concurrently from many workers.
//   - Resilient: a sink failure must never abort the evaluation it is
//     observing.
type Emitter interface {
	// Emit delivers a single event. Implementations should not block on
	// external I/O; buffer and flush asynchronously if needed.
	Emit(ctx context.Context, e Event) error

	// EmitBatch delivers multiple events, preserving their relative
	// order. Used by sinks where per-event round trips are wasteful
	// (e.g. a SQL sink).
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all previously accepted events have reached
	// the backing store, or ctx is done.
	Flush(ctx context.Context) error
}
