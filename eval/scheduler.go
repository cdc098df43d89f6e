package eval

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

// Scheduler drives one evaluation: a pool of workers draining a
// Frontier, invoking compute functions, and propagating terminal
// transitions to waiting reverse dependencies.
type Scheduler struct {
	store    *MemGraphStore
	registry *Registry
	frontier *Frontier
	cfg      *evalConfig

	// outstanding counts keys that have been enqueued but not yet
	// finished one pass through processItem (whether that pass
	// completed, errored, or suspended). It is NOT tied to "count of
	// non-terminal entries": a cyclic pair of entries stays IN_PROGRESS
	// forever without ever consuming another pass, so outstanding
	// correctly reaches zero and lets the scheduler detect that the
	// run has stalled rather than spinning forever.
	outstanding atomic.Int64
	idle        chan struct{}

	// inflight counts workers currently inside processItem, invoking a
	// compute function — reported via SchedulerMetrics.SetInflightWorkers.
	inflight atomic.Int64

	// fatal holds a CatastrophicError or UnrecoverableError: these
	// always halt the run, regardless of KeepGoing, and become
	// Evaluate's own returned error.
	fatal atomic.Pointer[error]

	// failFast holds the first ordinary (non-unrecoverable) error —
	// a ComputeError or DependencyError — seen while KeepGoing is
	// false. It triggers the same orderly-shutdown path as fatal, but
	// is surfaced through Result.FailFastCause rather than Evaluate's
	// return value: siblings that had not yet completed are simply
	// absent from the result, not reported as failed.
	failFast atomic.Pointer[error]
}

func newScheduler(registry *Registry, cfg *evalConfig, observer GraphObserver) *Scheduler {
	return &Scheduler{
		store:    NewMemGraphStore(observer),
		registry: registry,
		frontier: NewFrontier(),
		cfg:      cfg,
		idle:     make(chan struct{}, 1),
	}
}

// discoverAndEnqueue is called the first time a key is seen, whether
// it is a requested root or a dependency discovered mid-computation.
func (s *Scheduler) discoverAndEnqueue(k Key) {
	n := s.outstanding.Add(1)
	if s.cfg.metrics != nil {
		s.cfg.metrics.SetFrontierDepth(n)
	}
	s.emit(emit.KindEnqueueing, k, "")
	s.frontier.Enqueue(k)
}

func (s *Scheduler) emit(kind emit.EventKind, k Key, message string) {
	if s.cfg.emitter == nil {
		return
	}
	_ = s.cfg.emitter.Emit(context.Background(), emit.NewEvent(kind, k.String(), k.Family, message))
}

// run starts the worker pool, seeds the frontier with roots, and
// blocks until every requested root is terminal, the context is
// cancelled, or a catastrophic/unrecoverable error halts the run.
func (s *Scheduler) run(ctx context.Context, roots []Key) error {
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workerLoop(workerCtx)
		}()
	}

	for _, r := range roots {
		if _, created := s.store.CreateIfAbsent(r); created {
			s.discoverAndEnqueue(r)
		}
	}

	var runErr error
waitLoop:
	for {
		select {
		case <-ctx.Done():
			runErr = ErrCancelled
			break waitLoop
		case <-s.idle:
			if fp := s.fatal.Load(); fp != nil {
				runErr = *fp
				break waitLoop
			}
			if s.failFast.Load() != nil {
				// Orderly shutdown: stop dispatching new work, but
				// this is not an aborted run — Evaluate still returns
				// a Result, with the cause surfaced via
				// Result.FailFastCause.
				break waitLoop
			}
			if s.outstanding.Load() == 0 {
				break waitLoop
			}
		}
	}

	cancelWorkers()
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	if s.failFast.Load() == nil {
		resolveStalls(s, roots)
		if fp := s.fatal.Load(); fp != nil {
			return *fp
		}
	}

	return nil
}

// failFastCause returns the first ordinary error recorded under
// KeepGoing(false), or nil if fail-fast never fired.
func (s *Scheduler) failFastCause() error {
	if p := s.failFast.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case k, ok := <-s.frontier.Out():
			if !ok {
				return
			}
			s.inflight.Add(1)
			if s.cfg.metrics != nil {
				s.cfg.metrics.SetInflightWorkers(int(s.inflight.Load()))
			}
			s.processItem(ctx, k, s.liveWake)
			s.inflight.Add(-1)
			if s.cfg.metrics != nil {
				s.cfg.metrics.SetInflightWorkers(int(s.inflight.Load()))
			}
			n := s.outstanding.Add(-1)
			if s.cfg.metrics != nil {
				s.cfg.metrics.SetFrontierDepth(n)
			}
			if n == 0 {
				select {
				case s.idle <- struct{}{}:
				default:
				}
			}
		}
	}
}

// liveWake is the wake callback used while the worker pool is running:
// it re-enters the normal frontier/outstanding bookkeeping.
func (s *Scheduler) liveWake(k Key) {
	n := s.outstanding.Add(1)
	if s.cfg.metrics != nil {
		s.cfg.metrics.SetFrontierDepth(n)
	}
	s.frontier.Enqueue(k)
}

// processItem invokes k's compute function once (a first invocation or
// a resume) and reacts to the outcome. wake is called with any parent
// key that becomes ready to resume as a result — it is s.liveWake
// during normal operation, or a synchronous local queue appender when
// called from the post-run stall resolver, which has no worker pool
// left to hand work to.
func (s *Scheduler) processItem(ctx context.Context, k Key, wake func(Key)) {
	entry, ok := s.store.Get(k)
	if !ok {
		return
	}
	if entry.IsTerminal() {
		return
	}

	fe, ok := s.registry.lookup(k.Family)
	if !ok {
		s.completeEntry(entry, nil, &ComputeError{Key: k, Err: ErrUnknownFamily}, wake)
		return
	}

	entry.beginInProgress() // no-op if already IN_PROGRESS (a resume)
	entry.resetForRestart()
	s.emit(emit.KindEvaluating, k, "")

	env := newEnvironment(ctx, s, entry)
	value, err, suspended := s.safeInvoke(fe.compute, env, k.Argument)
	unmatched := env.unmatched

	// A RecoveryPolicy retries only a transient failure raised by this
	// key's own compute function: a suspend is not a failure, and a
	// dependency error (unmatched root causes present) is not this
	// key's own to retry — the dependency itself is what must resolve.
	for attempt := 0; err != nil && !suspended && len(unmatched) == 0 &&
		fe.policy != nil && fe.policy.Retryable != nil && fe.policy.Retryable(err) &&
		attempt < fe.policy.MaxAttempts-1; attempt++ {
		delay := computeBackoff(attempt, fe.policy.BaseDelay, fe.policy.MaxDelay, nil)
		s.emit(emit.KindMessage, k, fmt.Sprintf("retrying after %v: %v", delay, err))
		select {
		case <-ctx.Done():
			break
		case <-time.After(delay):
		}
		if ctx.Err() != nil {
			break
		}
		entry.resetForRestart()
		env = newEnvironment(ctx, s, entry)
		value, err, suspended = s.safeInvoke(fe.compute, env, k.Argument)
		unmatched = env.unmatched
	}

	if suspended {
		if entry.armAndCheck() {
			wake(k)
		}
		return
	}

	if err != nil {
		switch {
		case isEvalError(err):
			// already one of our typed errors (e.g. surfaced via
			// GetValueOrThrow and returned as-is by the compute
			// function); keep it unchanged.
		case len(unmatched) > 0:
			err = &DependencyError{Key: k, RootCauses: dedupErrors(unmatched)}
		default:
			err = &ComputeError{Key: k, Err: err}
		}
		switch e := err.(type) {
		case *CatastrophicError:
			s.setFatal(e)
		case *UnrecoverableError:
			// Always fatal regardless of KeepGoing, same as
			// CatastrophicError — it wraps a panic, not a domain
			// error the bubbler can meaningfully attribute. It is
			// not stored on the entry.
			s.setFatal(e)
			return
		default:
			// ComputeError, DependencyError, or a foreign typed error
			// surfaced via isEvalError: an ordinary, non-unrecoverable
			// failure. Under fail-fast, the first one triggers orderly
			// shutdown of every other in-flight and pending key.
			if !s.cfg.keepGoing {
				s.setFailFast(err)
			}
		}
	}

	s.completeEntry(entry, value, err, wake)
}

func isEvalError(err error) bool {
	switch err.(type) {
	case *ComputeError, *DependencyError, *CycleError, *UnrecoverableError, *CatastrophicError:
		return true
	default:
		return false
	}
}

func (s *Scheduler) setFatal(err error) {
	s.fatal.CompareAndSwap(nil, &err)
	select {
	case s.idle <- struct{}{}:
	default:
	}
}

func (s *Scheduler) setFailFast(err error) {
	s.failFast.CompareAndSwap(nil, &err)
	select {
	case s.idle <- struct{}{}:
	default:
	}
}

// completeEntry transitions entry to its terminal state and wakes
// every reverse dependency waiting on it.
func (s *Scheduler) completeEntry(entry *Entry, value any, err error, wake func(Key)) {
	state := stateDone
	kind := emit.KindDone
	if err != nil {
		state = stateErrored
		kind = emit.KindErrored
	}
	if !entry.transitionTo(state, value, err) {
		return
	}
	s.store.observer.OnTransition(entry.Key(), state)
	s.emit(kind, entry.Key(), errMessage(err))
	if s.cfg.metrics != nil {
		s.cfg.metrics.IncKeysCompleted()
		if err != nil {
			s.cfg.metrics.IncErrorsFound()
		}
	}
	if s.cfg.progress != nil {
		st := StateDone
		if err != nil {
			st = StateErrored
		}
		s.cfg.progress.OnKeyTerminal(entry.Key(), st, replayFor(entry))
	}

	for _, parentKey := range entry.snapshotReverseDeps() {
		parentEntry, ok := s.store.Get(parentKey)
		if !ok {
			continue
		}
		if parentEntry.signalArrived() {
			wake(parentKey)
		}
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// safeInvoke runs compute, translating a suspend signal into
// suspended=true and any other panic into an *UnrecoverableError. It
// is the only place in the package that recovers a panic: Suspend's
// panic is pure internal control flow and must never escape this
// boundary as a genuine crash.
func (s *Scheduler) safeInvoke(compute ComputeFunc, env *Environment, arg KeyArg) (value any, err error, suspended bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(suspendSignal); ok {
				suspended = true
				return
			}
			err = &UnrecoverableError{Key: env.self.Key(), Parents: env.self.snapshotReverseDeps(), Panic: r}
		}
	}()
	value, err = compute(env.ctx, env, arg)
	return value, err, false
}
