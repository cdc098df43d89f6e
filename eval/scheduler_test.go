package eval

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestEvaluateRecoveryPolicyRetriesTransientFailure covers the case a
// RecoveryPolicy exists for: a key whose compute function fails a
// bounded number of times before succeeding recovers in place, without
// ever surfacing a ComputeError to its caller.
func TestEvaluateRecoveryPolicyRetriesTransientFailure(t *testing.T) {
	sentinel := errors.New("connection reset")
	attempts := 0

	reg := NewRegistry()
	reg.RegisterWithRecovery(famLeaf, func(_ context.Context, _ *Environment, _ KeyArg) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, sentinel
		}
		return 99, nil
	}, &RecoveryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, sentinel) },
	})

	root := NewKey(famLeaf, StringArg("flaky"))
	res, err := Evaluate[int](context.Background(), reg, []Key{root})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	entry := res.Entries[root]
	if entry.Err != nil {
		t.Fatalf("entry.Err = %v, want recovered success", entry.Err)
	}
	if entry.Value != 99 {
		t.Fatalf("entry.Value = %d, want 99", entry.Value)
	}
	if attempts != 3 {
		t.Fatalf("compute called %d times, want 3 (2 failures + 1 success)", attempts)
	}
}

// TestEvaluateRecoveryPolicyExhaustsAttempts covers a key that never
// recovers: once MaxAttempts is spent, the last failure is reported as
// an ordinary ComputeError, same as having no policy at all.
func TestEvaluateRecoveryPolicyExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still down")
	attempts := 0

	reg := NewRegistry()
	reg.RegisterWithRecovery(famLeaf, func(_ context.Context, _ *Environment, _ KeyArg) (any, error) {
		attempts++
		return nil, sentinel
	}, &RecoveryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Retryable:   func(error) bool { return true },
	})

	root := NewKey(famLeaf, StringArg("down"))
	res, err := Evaluate[int](context.Background(), reg, []Key{root}, WithKeepGoing(true))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	entry := res.Entries[root]
	var ce *ComputeError
	if !errors.As(entry.Err, &ce) {
		t.Fatalf("entry.Err = %T, want *ComputeError", entry.Err)
	}
	if attempts != 3 {
		t.Fatalf("compute called %d times, want 3 (MaxAttempts)", attempts)
	}
}

// TestEvaluateRecoveryPolicyIgnoresNonRetryable covers an error that
// Retryable rejects: the policy never even gets a second chance, and
// the key fails on its first invocation.
func TestEvaluateRecoveryPolicyIgnoresNonRetryable(t *testing.T) {
	attempts := 0

	reg := NewRegistry()
	reg.RegisterWithRecovery(famLeaf, func(_ context.Context, _ *Environment, _ KeyArg) (any, error) {
		attempts++
		return nil, errors.New("permanent")
	}, &RecoveryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(error) bool { return false },
	})

	root := NewKey(famLeaf, StringArg("permanent"))
	res, err := Evaluate[int](context.Background(), reg, []Key{root}, WithKeepGoing(true))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Entries[root].Err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Fatalf("compute called %d times, want 1 (not retryable)", attempts)
	}
}
