package eval

import "context"

// ComputeFunc computes the value for one key, using env to request
// dependencies and emit diagnostics. It may be invoked more than once
// per key (after a suspend, once every dependency it was waiting on is
// terminal, and again for each retry under a RecoveryPolicy), so it
// must be safe to re-run from the top: any dependency it already
// fetched in an earlier invocation is served from cache, not
// recomputed.
type ComputeFunc func(ctx context.Context, env *Environment, arg KeyArg) (value any, err error)

// familyEntry pairs a family's compute function with its optional
// recovery policy.
type familyEntry struct {
	compute ComputeFunc
	policy  *RecoveryPolicy
}

// Registry maps key families to the compute functions that produce
// their values. A family must be registered before any key in that
// family can be evaluated.
type Registry struct {
	families map[string]familyEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]familyEntry)}
}

// Register adds family with no special recovery policy.
func (r *Registry) Register(family string, compute ComputeFunc) {
	r.families[family] = familyEntry{compute: compute}
}

// RegisterWithRecovery adds family along with a RecoveryPolicy the
// scheduler consults to retry a transient failure of this family's
// compute function before giving up on a key.
func (r *Registry) RegisterWithRecovery(family string, compute ComputeFunc, policy *RecoveryPolicy) {
	r.families[family] = familyEntry{compute: compute, policy: policy}
}

func (r *Registry) lookup(family string) (familyEntry, bool) {
	fe, ok := r.families[family]
	return fe, ok
}
