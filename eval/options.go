package eval

import (
	"fmt"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

// evalConfig collects everything an Option can tune about one
// Evaluate call.
type evalConfig struct {
	parallelism   int
	keepGoing     bool
	emitter       emit.Emitter
	metrics       *SchedulerMetrics
	progress      ProgressReceiver
	cyclesPerRoot int
}

func defaultEvalConfig() *evalConfig {
	return &evalConfig{
		parallelism:   8,
		keepGoing:     false,
		emitter:       emit.NewNullEmitter(),
		progress:      nil,
		cyclesPerRoot: 20,
	}
}

// Option configures one call to Evaluate.
type Option func(*evalConfig) error

// WithParallelism sets the number of worker goroutines draining the
// frontier. Must be >= 1.
func WithParallelism(n int) Option {
	return func(c *evalConfig) error {
		if n < 1 {
			return fmt.Errorf("eval: WithParallelism: n must be >= 1, got %d", n)
		}
		c.parallelism = n
		return nil
	}
}

// WithKeepGoing controls whether evaluation continues past the first
// error, collecting as many independent results as possible, or halts
// as soon as any requested root cannot complete.
func WithKeepGoing(keepGoing bool) Option {
	return func(c *evalConfig) error {
		c.keepGoing = keepGoing
		return nil
	}
}

// WithEmitter sets the diagnostic event sink. Defaults to a no-op.
func WithEmitter(e emit.Emitter) Option {
	return func(c *evalConfig) error {
		if e == nil {
			return fmt.Errorf("eval: WithEmitter: emitter must not be nil")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics attaches a SchedulerMetrics collector.
func WithMetrics(m *SchedulerMetrics) Option {
	return func(c *evalConfig) error {
		c.metrics = m
		return nil
	}
}

// WithProgress attaches a ProgressReceiver that is replayed the full
// event history for every key as it reaches a terminal state.
func WithProgress(p ProgressReceiver) Option {
	return func(c *evalConfig) error {
		c.progress = p
		return nil
	}
}

// WithCyclesPerRoot caps how many distinct cycles the cycle detector
// will report per requested root before giving up (default 20).
func WithCyclesPerRoot(n int) Option {
	return func(c *evalConfig) error {
		if n < 1 {
			return fmt.Errorf("eval: WithCyclesPerRoot: n must be >= 1, got %d", n)
		}
		c.cyclesPerRoot = n
		return nil
	}
}
