package eval

import "sort"

// cycleFrame is one stack frame of the iterative DFS used by
// detectCycles: which key we're visiting and how far into its
// recorded dependencies we've walked.
type cycleFrame struct {
	key      Key
	depIdx   int
	deps     []Key
}

// detectCycles walks the dependency edges recorded on store's entries,
// depth-first from root, and returns every distinct cycle reachable
// from it, each with the path of keys leading to the cycle's entry
// point. A cycle is identified by its member set (not by which key on
// it was reached first), so the same cycle found via two different
// paths is reported once. At most maxCycles are returned.
//
// The traversal is iterative (an explicit stack, not recursion) so it
// cannot stack-overflow on deep or adversarially constructed graphs.
func detectCycles(store GraphStore, root Key, maxCycles int) []*CycleError {
	var found []*CycleError
	seenSignatures := make(map[string]struct{})

	onStack := make(map[Key]int) // key -> index in stack
	var stack []cycleFrame

	push := func(k Key) {
		deps := depsOf(store, k)
		onStack[k] = len(stack)
		stack = append(stack, cycleFrame{key: k, deps: deps})
	}
	push(root)

	for len(stack) > 0 && len(found) < maxCycles {
		top := &stack[len(stack)-1]
		if top.depIdx >= len(top.deps) {
			delete(onStack, top.key)
			stack = stack[:len(stack)-1]
			continue
		}
		next := top.deps[top.depIdx]
		top.depIdx++

		if idx, onPath := onStack[next]; onPath {
			cycle := make([]Key, 0, len(stack)-idx)
			for _, f := range stack[idx:] {
				cycle = append(cycle, f.key)
			}
			sig := cycleSignature(cycle)
			if _, dup := seenSignatures[sig]; !dup {
				seenSignatures[sig] = struct{}{}
				path := make([]Key, idx)
				for i := 0; i < idx; i++ {
					path[i] = stack[i].key
				}
				found = append(found, &CycleError{Key: root, PathToCycle: path, Cycle: cycle})
				if len(found) >= maxCycles {
					break
				}
			}
			continue
		}
		if _, alreadyVisited := onStack[next]; !alreadyVisited {
			push(next)
		}
	}

	return found
}

func depsOf(store GraphStore, k Key) []Key {
	entry, ok := store.Get(k)
	if !ok {
		return nil
	}
	var all []Key
	for _, g := range entry.DepGroups() {
		all = append(all, g...)
	}
	return all
}

// cycleSignature is the dedup key for a cycle: its member keys sorted,
// so the same cycle reached by two different entry points compares
// equal regardless of which key is listed first.
func cycleSignature(cycle []Key) string {
	sorted := make([]string, len(cycle))
	for i, k := range cycle {
		sorted[i] = k.String()
	}
	sort.Strings(sorted)
	sig := ""
	for _, s := range sorted {
		sig += s + "\x00"
	}
	return sig
}
