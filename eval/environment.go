package eval

import (
	"context"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

// DepStatus reports the state of a requested dependency at the moment
// it was asked for.
type DepStatus int

const (
	// DepReady means the dependency is DONE; its value is available.
	DepReady DepStatus = iota
	// DepErrored means the dependency is ERRORED; no value is available.
	DepErrored
	// DepPending means the dependency is not yet terminal. A compute
	// function that sees this for any requested key must suspend via
	// Environment.Suspend.
	DepPending
)

// suspendSignal is panicked by Environment.Suspend and recovered only
// by the scheduler's invocation wrapper; it is never observable
// outside this package.
type suspendSignal struct{}

// Environment is the handle a ComputeFunc uses to request dependency
// values, recover from dependency errors it knows how to handle, and
// emit diagnostic events. A fresh Environment is constructed for every
// invocation (including re-invocations after a suspend).
type Environment struct {
	ctx       context.Context
	sched     *Scheduler
	self      *Entry
	groupIdx  int
	unmatched []error // root causes of errored deps this invocation did not recover from
}

func newEnvironment(ctx context.Context, s *Scheduler, self *Entry) *Environment {
	return &Environment{ctx: ctx, sched: s, self: self, groupIdx: self.beginGroup()}
}

// Context returns the evaluation's context, for compute functions that
// perform cancellable I/O.
func (env *Environment) Context() context.Context {
	return env.ctx
}

// GetValue requests a single dependency. See DepStatus for how to
// react to each outcome.
func (env *Environment) GetValue(key KeyArg, family string) (value any, status DepStatus) {
	return env.get(NewKey(family, key))
}

// GetValueByKey is GetValue for callers that already have a Key.
func (env *Environment) GetValueByKey(key Key) (value any, status DepStatus) {
	return env.get(key)
}

func (env *Environment) get(key Key) (any, DepStatus) {
	entry, created := env.sched.store.CreateIfAbsent(key)
	if created {
		env.sched.discoverAndEnqueue(key)
	}
	env.self.recordDep(env.groupIdx, key)

	alreadyTerminal := entry.AddReverseDep(env.self.key)
	if !alreadyTerminal {
		env.self.incPending()
		return nil, DepPending
	}

	state, value, err := entry.snapshot()
	if state == stateDone {
		return value, DepReady
	}
	_ = err
	return nil, DepErrored
}

// GetValues requests several dependencies, in order. They are recorded
// in this invocation's dependency group alongside every other key the
// invocation requests; no separate group is started for the batch.
// Returns a parallel slice of statuses.
func (env *Environment) GetValues(keys []Key) (values []any, statuses []DepStatus) {
	values = make([]any, len(keys))
	statuses = make([]DepStatus, len(keys))
	for i, k := range keys {
		values[i], statuses[i] = env.get(k)
	}
	return values, statuses
}

// GetValueOrThrow requests a dependency, and if it errored, returns
// that error directly to the caller whenever class matches it,
// allowing the compute function to recover in ordinary Go fashion
// (an errors.Is/errors.As check in its own code). If the error does
// not match class, it is recorded as an unrecovered root cause: should
// this invocation go on to return a non-nil error of its own, the
// entry is classified as a DependencyError inheriting these causes
// rather than a ComputeError blaming this key.
func (env *Environment) GetValueOrThrow(key Key, class ErrorClass) (value any, status DepStatus, err error) {
	value, status = env.get(key)
	if status != DepErrored {
		return value, status, nil
	}
	depEntry, _ := env.sched.store.Get(key)
	_, _, depErr := depEntry.snapshot()
	if class != nil && class(depErr) {
		return nil, status, depErr
	}
	env.unmatched = append(env.unmatched, rootCausesOf(depErr)...)
	return nil, status, depErr
}

// GetValuesOrThrow is GetValueOrThrow over a group of keys sharing one
// ErrorClass.
func (env *Environment) GetValuesOrThrow(keys []Key, class ErrorClass) (values []any, statuses []DepStatus, firstErr error) {
	values = make([]any, len(keys))
	statuses = make([]DepStatus, len(keys))
	for i, k := range keys {
		v, s, err := env.GetValueOrThrow(k, class)
		values[i], statuses[i] = v, s
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return values, statuses, firstErr
}

// Suspend must be called (as `return env.Suspend()`) by a compute
// function as soon as it sees any DepPending status it cannot proceed
// without. It never returns; the scheduler resumes this key's compute
// function from the top once every outstanding blocker is terminal.
func (env *Environment) Suspend() (any, error) {
	panic(suspendSignal{})
}

// Emit records a text diagnostic event on this key's entry.
func (env *Environment) Emit(message string) {
	env.self.appendEvent(int(emit.KindMessage), message, nil)
}

// EmitBytes records a binary diagnostic event.
func (env *Environment) EmitBytes(data []byte) {
	env.self.appendEvent(int(emit.KindMessage), "", data)
}

// rootCausesOf flattens a dependency's terminal error into the set of
// root causes it ultimately traces back to: a DependencyError's own
// RootCauses are reused as-is (already flattened), anything else (a
// *ComputeError or *CycleError) is itself a root cause.
func rootCausesOf(err error) []error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DependencyError); ok {
		return de.RootCauses
	}
	return []error{err}
}

func dedupErrors(errs []error) []error {
	seen := make(map[error]struct{}, len(errs))
	var out []error
	for _, e := range errs {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
