package eval

import "sync"

// entryState is the lifecycle stage of a single graph Entry.
type entryState int

const (
	stateNew entryState = iota
	stateInProgress
	stateDone
	stateErrored
)

// depGroup is an ordered, deduplicated set of keys requested during one
// compute invocation: every GetValue, GetValues and GetValueOrThrow call
// of that invocation adds to the same group. Groups are stored in request order
// so that cycle-info lists are order-stable for identical graph
// shapes: a plain map would scramble that order on every run.
type depGroup struct {
	keys []Key
	seen map[Key]struct{}
}

func newDepGroup() *depGroup {
	return &depGroup{seen: make(map[Key]struct{})}
}

func (g *depGroup) add(k Key) {
	if _, ok := g.seen[k]; ok {
		return
	}
	g.seen[k] = struct{}{}
	g.keys = append(g.keys, k)
}

// Entry is one node of the dependency graph: its lifecycle state, its
// value or error once terminal, the dependencies it has requested
// (grouped by invocation/restart), and the reverse dependencies
// waiting to be signaled when it completes.
type Entry struct {
	key Key

	mu          sync.Mutex
	state       entryState
	value       any
	computeErr  error     // set on stateErrored; the *ComputeError, *DependencyError, or *CycleError
	depGroups   []*depGroup
	reverseDeps []Key
	storedEvents []storedEvent

	// pending counts blockers (non-terminal deps subscribed to during
	// the current invocation) not yet resolved.
	pending int

	// resumeArmed is true once the current invocation has suspended
	// awaiting pending>0 blockers. Exactly one of armAndCheck's own
	// check or a later signalArrived call will observe pending<=0
	// while resumeArmed is true and clear it, guaranteeing the entry
	// is re-enqueued for resume exactly once.
	resumeArmed bool
}

type storedEvent struct {
	kind    int
	message string
	bytes   []byte
}

func newEntry(k Key) *Entry {
	return &Entry{key: k, state: stateNew}
}

// Key returns the key this entry was created for.
func (e *Entry) Key() Key { return e.key }

// snapshot returns the entry's terminal status and value/error under
// lock, for callers that just need a point-in-time read.
func (e *Entry) snapshot() (state entryState, value any, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.value, e.computeErr
}

func (e *Entry) isTerminal() bool {
	return e.state == stateDone || e.state == stateErrored
}

// IsTerminal reports whether the entry has finished (DONE or ERRORED).
func (e *Entry) IsTerminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isTerminal()
}

// beginGroup starts tracking a new ordered dependency group for the
// entry's current invocation (or restart). Returns the group index.
func (e *Entry) beginGroup() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.depGroups = append(e.depGroups, newDepGroup())
	return len(e.depGroups) - 1
}

// recordDep appends dep to the given group, first-occurrence-wins
// across restarts (a dep already present anywhere in depGroups keeps
// its original group).
func (e *Entry) recordDep(groupIdx int, dep Key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, g := range e.depGroups {
		if _, ok := g.seen[dep]; ok {
			return
		}
	}
	e.depGroups[groupIdx].add(dep)
}

// DepGroups returns a snapshot of the ordered dependency groups
// recorded so far, for cycle detection and diagnostics.
func (e *Entry) DepGroups() [][]Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]Key, len(e.depGroups))
	for i, g := range e.depGroups {
		out[i] = append([]Key(nil), g.keys...)
	}
	return out
}

// AddReverseDep registers parent as a reverse dependency of e (to be
// signaled when e becomes terminal) and atomically reports whether e
// was ALREADY terminal at the moment of registration.
//
// Doing both things under e's own lock in one call is what closes the
// race: if registration and the "already terminal" check were two
// separate operations, e could transition to terminal in the gap
// between them and the parent would never be signaled and never know
// it needed to check again.
func (e *Entry) AddReverseDep(parent Key) (alreadyTerminal bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isTerminal() {
		return true
	}
	e.reverseDeps = append(e.reverseDeps, parent)
	return false
}

// snapshotReverseDeps returns (and does not clear) the current reverse
// deps, for the scheduler to signal on a terminal transition.
func (e *Entry) snapshotReverseDeps() []Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Key(nil), e.reverseDeps...)
}

// transitionTo moves the entry to a terminal state with its value or
// error. Returns false if the entry was already terminal (a no-op:
// callers must not double-terminate an entry).
func (e *Entry) transitionTo(state entryState, value any, err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isTerminal() {
		return false
	}
	e.state = state
	e.value = value
	e.computeErr = err
	if state == stateErrored {
		e.storedEvents = nil
	}
	return true
}

// beginInProgress moves a NEW entry to IN_PROGRESS. No-op (returns
// false) if the entry isn't NEW.
func (e *Entry) beginInProgress() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateNew {
		return false
	}
	e.state = stateInProgress
	return true
}

// resetForRestart clears in-flight blocker bookkeeping so the compute
// function can be re-invoked from the top, while preserving previously
// recorded dep groups (first-occurrence-wins).
func (e *Entry) resetForRestart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = 0
	e.resumeArmed = false
}

// incPending records one more blocker discovered during the current
// invocation (a dependency that was not yet terminal when requested).
func (e *Entry) incPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending++
}

// armAndCheck is called once, immediately after a compute invocation
// suspends (returns having requested at least one non-terminal
// dependency). It arms the entry for resume and reports whether every
// blocker already resolved in the meantime, in which case the caller
// must re-enqueue the entry itself; otherwise the eventual
// signalArrived call that brings pending to zero will do so.
func (e *Entry) armAndCheck() (readyNow bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending <= 0 {
		return true
	}
	e.resumeArmed = true
	return false
}

// signalArrived records that one blocker of this entry has become
// terminal. Reports whether this was the last one and the entry is
// armed for resume, in which case the caller must re-enqueue it.
func (e *Entry) signalArrived() (readyToResume bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending--
	if e.resumeArmed && e.pending <= 0 {
		e.resumeArmed = false
		return true
	}
	return false
}

func (e *Entry) appendEvent(kind int, message string, bytes []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Events are appended while the compute function runs;
	// transitionTo discards them if the entry ends ERRORED, so only a
	// DONE entry keeps them for replay.
	e.storedEvents = append(e.storedEvents, storedEvent{kind: kind, message: message, bytes: bytes})
}

// StoredEvents returns the diagnostic events recorded during this
// entry's successful (DONE) computation, for event replay.
func (e *Entry) StoredEvents() []storedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]storedEvent(nil), e.storedEvents...)
}
