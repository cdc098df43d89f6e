package eval

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by Evaluate when the supplied context was
// cancelled before evaluation completed.
var ErrCancelled = errors.New("evaluation cancelled")

// ErrMissingDeps is the sentinel wrapped by a compute function's own
// logic (via GetValueOrThrow) when it chooses not to handle a missing
// dependency itself; Environment never returns it directly.
var ErrMissingDeps = errors.New("one or more requested dependencies are missing")

// ErrUnknownFamily is returned when a key names a family that was
// never registered with the Registry.
var ErrUnknownFamily = errors.New("unknown key family")

// ErrInvalidRecoveryPolicy is returned by RecoveryPolicy.Validate when
// its fields are inconsistent.
var ErrInvalidRecoveryPolicy = errors.New("invalid recovery policy")

// ComputeError wraps an error returned directly by a compute function:
// the key itself is the root cause.
type ComputeError struct {
	Key Key
	Err error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("computing %s: %v", e.Key, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// DependencyError wraps the fact that a key could not complete because
// one or more of its dependencies errored. RootCauses lists the
// terminal (non-dependency) errors reachable from this key, deduped
// and ordered by first discovery.
type DependencyError struct {
	Key        Key
	RootCauses []error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("evaluating %s: %d dependency error(s), first: %v", e.Key, len(e.RootCauses), e.firstOrNil())
}

func (e *DependencyError) firstOrNil() error {
	if len(e.RootCauses) == 0 {
		return nil
	}
	return e.RootCauses[0]
}

func (e *DependencyError) Unwrap() error { return e.firstOrNil() }

// CycleError reports a dependency cycle discovered while evaluating
// Key. Cycle lists the keys participating in the cycle in traversal
// order (each Cycle[i] depends on Cycle[i+1], and Cycle[len-1] depends
// back on Cycle[0]); PathToCycle lists the keys traversed before reaching the
// cycle, from the requested root.
type CycleError struct {
	Key         Key
	PathToCycle []Key
	Cycle       []Key
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected evaluating %s: %v", e.Key, e.Cycle)
}

// UnrecoverableError wraps a panic recovered from a compute function,
// or any other condition the evaluator cannot classify as an ordinary
// compute failure. It is always fatal: it is never stored on the
// entry, and always halts the run regardless of KeepGoing. Parents
// holds the keys that had requested Key when the panic occurred.
type UnrecoverableError struct {
	Key      Key
	Parents  []Key
	Panic    any
	Original error
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("Unrecoverable error while evaluating node '%s' (requested by nodes '%v')", e.Key, e.Parents)
}

func (e *UnrecoverableError) Unwrap() error { return e.Original }

// CatastrophicError supersedes KeepGoing: once raised, the scheduler
// halts all in-flight and pending work immediately, as if KeepGoing
// were false, regardless of its configured value.
type CatastrophicError struct {
	Key Key
	Err error
}

func (e *CatastrophicError) Error() string {
	return fmt.Sprintf("catastrophic error evaluating %s: %v", e.Key, e.Err)
}

func (e *CatastrophicError) Unwrap() error { return e.Err }

// ErrorClass is a runtime type-tag predicate used by GetValueOrThrow
// and GetValuesOrThrow to decide whether a dependency's error should
// be returned to the caller (for in-band recovery) or re-thrown as a
// DependencyError. Domain-error matching is deliberately a runtime
// predicate supplied by the caller, not a language-level exception
// hierarchy: it lets a compute function recover from exactly the
// error shapes it knows how to handle.
type ErrorClass func(error) bool

// ClassOf returns an ErrorClass matching any error where errors.Is
// reports a match against sentinel.
func ClassOf(sentinel error) ErrorClass {
	return func(err error) bool {
		return errors.Is(err, sentinel)
	}
}

// ClassOfType returns an ErrorClass matching any error where
// errors.As would succeed against type E.
func ClassOfType[E error]() ErrorClass {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}
