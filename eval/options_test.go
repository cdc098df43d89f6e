package eval

import (
	"testing"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

func TestDefaultEvalConfig(t *testing.T) {
	cfg := defaultEvalConfig()
	if cfg.parallelism != 8 {
		t.Errorf("default parallelism = %d, want 8", cfg.parallelism)
	}
	if cfg.keepGoing {
		t.Error("default keepGoing should be false")
	}
	if cfg.emitter == nil {
		t.Error("default emitter should not be nil")
	}
	if cfg.cyclesPerRoot != 20 {
		t.Errorf("default cyclesPerRoot = %d, want 20", cfg.cyclesPerRoot)
	}
}

func TestWithParallelismRejectsNonPositive(t *testing.T) {
	cfg := defaultEvalConfig()
	if err := WithParallelism(0)(cfg); err == nil {
		t.Error("WithParallelism(0) should return an error")
	}
	if err := WithParallelism(4)(cfg); err != nil {
		t.Fatalf("WithParallelism(4): %v", err)
	}
	if cfg.parallelism != 4 {
		t.Errorf("parallelism = %d, want 4", cfg.parallelism)
	}
}

func TestWithEmitterRejectsNil(t *testing.T) {
	cfg := defaultEvalConfig()
	if err := WithEmitter(nil)(cfg); err == nil {
		t.Error("WithEmitter(nil) should return an error")
	}
	e := emit.NewBufferedEmitter()
	if err := WithEmitter(e)(cfg); err != nil {
		t.Fatalf("WithEmitter: %v", err)
	}
	if cfg.emitter != e {
		t.Error("WithEmitter should install the given emitter")
	}
}

func TestWithCyclesPerRootRejectsNonPositive(t *testing.T) {
	cfg := defaultEvalConfig()
	if err := WithCyclesPerRoot(0)(cfg); err == nil {
		t.Error("WithCyclesPerRoot(0) should return an error")
	}
	if err := WithCyclesPerRoot(5)(cfg); err != nil {
		t.Fatalf("WithCyclesPerRoot(5): %v", err)
	}
	if cfg.cyclesPerRoot != 5 {
		t.Errorf("cyclesPerRoot = %d, want 5", cfg.cyclesPerRoot)
	}
}

func TestWithKeepGoing(t *testing.T) {
	cfg := defaultEvalConfig()
	if err := WithKeepGoing(true)(cfg); err != nil {
		t.Fatalf("WithKeepGoing: %v", err)
	}
	if !cfg.keepGoing {
		t.Error("keepGoing should be true after WithKeepGoing(true)")
	}
}
