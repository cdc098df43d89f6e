package eval

// EvalState is the terminal classification of one key reported to a
// ProgressReceiver.
type EvalState int

const (
	StateDone EvalState = iota
	StateErrored
)

// ProgressReceiver observes keys as they reach a terminal state during
// evaluation. Unlike the Emitter event stream (raw diagnostic events,
// possibly filtered or sampled), a ProgressReceiver gets exactly one
// call per key, carrying that key's full recorded event history
// (replayed from Entry.StoredEvents) alongside its outcome — useful
// for building a live dashboard of "what finished, and what did it
// log along the way" without re-deriving it from the raw stream.
type ProgressReceiver interface {
	OnKeyTerminal(key Key, state EvalState, events []ReplayedEvent)
}

// ReplayedEvent is one diagnostic event recorded by a key's successful
// compute function, handed back verbatim at replay time.
type ReplayedEvent struct {
	Message string
	Bytes   []byte
}

func replayFor(entry *Entry) []ReplayedEvent {
	stored := entry.StoredEvents()
	out := make([]ReplayedEvent, len(stored))
	for i, s := range stored {
		out[i] = ReplayedEvent{Message: s.message, Bytes: s.bytes}
	}
	return out
}
