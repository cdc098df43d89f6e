package eval

import (
	"context"

	"github.com/ridgewaybuild/depeval/eval/emit"
)

// resolveStalls runs once the worker pool has gone idle with the graph
// not yet fully resolved. In a graph with no cycles, idle always means
// every reachable key is terminal — an entry can only stay IN_PROGRESS
// forever if it is waiting on a blocker that itself transitively
// depends back on it. So the only thing left to do here is find those
// cycles and fail them, then propagate that failure synchronously to
// whatever was waiting on them: the worker pool is already gone, so
// this function drives that propagation itself with a local queue
// instead of handing it back to the frontier.
func resolveStalls(s *Scheduler, roots []Key) {
	var queue []Key
	queued := make(map[Key]bool)
	wake := func(k Key) {
		if !queued[k] {
			queued[k] = true
			queue = append(queue, k)
		}
	}

	for _, root := range roots {
		entry, ok := s.store.Get(root)
		if !ok || entry.IsTerminal() {
			continue
		}
		cycles := detectCycles(s.store, root, s.cfg.cyclesPerRoot)
		for _, ce := range cycles {
			if s.cfg.metrics != nil {
				s.cfg.metrics.IncCyclesFound()
			}
			s.emit(emit.KindCycle, ce.Key, ce.Error())
			for _, k := range ce.Cycle {
				member, ok := s.store.Get(k)
				if !ok {
					continue
				}
				s.completeEntry(member, nil, ce, wake)
			}
		}
	}

	ctx := context.Background()
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		entry, ok := s.store.Get(k)
		if !ok || entry.IsTerminal() {
			continue
		}
		// wake only ever enqueues a key once signalArrived (called by
		// completeEntry for each of its reverse deps) has reported that
		// key's last blocker just resolved, so it is ready to resume.
		s.processItem(ctx, k, wake)
	}
}
