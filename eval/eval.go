package eval

import (
	"context"
	"fmt"
)

// ResultEntry is one requested root's outcome: exactly one of Value or
// Err is meaningful, discriminated by Err == nil.
type ResultEntry[T any] struct {
	Value T
	Err   error
}

// Result is the outcome of one Evaluate call, keyed by the roots that
// were requested.
type Result[T any] struct {
	// Entries holds one ResultEntry per root that reached a terminal
	// state. A root that was never attempted — possible only under
	// fail-fast, when orderly shutdown fired before its turn — is
	// simply absent from this map.
	Entries map[Key]ResultEntry[T]

	// HasError is true if any entry in Entries errored.
	HasError bool

	// FailFastCause is the first ComputeError or DependencyError that
	// triggered orderly shutdown under KeepGoing(false). It is nil
	// unless fail-fast actually fired — in particular it stays nil
	// under KeepGoing(true), even if individual entries errored.
	FailFastCause error
}

// Evaluate computes every key in roots (and, transitively, whatever
// they depend on) against registry, returning one ResultEntry per
// requested root. T types only the expected value type of the
// requested roots at this boundary: the graph's internal storage
// holds `any`, since different key families in the same graph may
// produce heterogeneous concrete types.
//
// Evaluate returns a non-nil error only for conditions that abort the
// whole run and leave no usable Result: context cancellation, a
// CatastrophicError, or an UnrecoverableError (a panic recovered from a
// compute function). Ordinary per-key failures — ComputeError and
// DependencyError — never abort the run this way, even under
// KeepGoing(false): fail-fast instead halts scheduling of further work
// and reports the first such error via Result.FailFastCause, with
// Result.Entries populated for every root that reached a terminal
// state before shutdown.
func Evaluate[T any](ctx context.Context, registry *Registry, roots []Key, opts ...Option) (Result[T], error) {
	return evaluateWithObserver[T](ctx, registry, roots, nil, opts...)
}

// evaluateWithObserver is Evaluate plus a GraphObserver hook, exposed
// for tests that need deterministic interleaving control.
func evaluateWithObserver[T any](ctx context.Context, registry *Registry, roots []Key, observer GraphObserver, opts ...Option) (Result[T], error) {
	cfg := defaultEvalConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Result[T]{}, err
		}
	}

	sched := newScheduler(registry, cfg, observer)
	defer sched.frontier.Close()

	if err := sched.run(ctx, roots); err != nil {
		return Result[T]{}, err
	}

	entries := make(map[Key]ResultEntry[T], len(roots))
	hasError := false
	for _, root := range roots {
		entry, ok := sched.store.Get(root)
		if !ok {
			continue
		}
		state, value, err := entry.snapshot()
		switch state {
		case stateDone:
			typed, ok := value.(T)
			if !ok {
				hasError = true
				entries[root] = ResultEntry[T]{Err: fmt.Errorf("eval: root %s produced value of unexpected type %T", root, value)}
				continue
			}
			entries[root] = ResultEntry[T]{Value: typed}
		case stateErrored:
			hasError = true
			entries[root] = ResultEntry[T]{Err: err}
		default:
			// NEW or IN_PROGRESS: fail-fast fired before this root
			// was ever reached. Per spec this root's result is
			// "absent", not a fabricated zero-valued entry.
		}
	}

	return Result[T]{
		Entries:       entries,
		HasError:      hasError,
		FailFastCause: sched.failFastCause(),
	}, nil
}
