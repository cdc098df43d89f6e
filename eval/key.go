// Package eval implements a demand-driven, memoizing, concurrent
// evaluator over a keyed dependency graph, in the spirit of Bazel's
// Skyframe: a value is computed at most once per graph generation,
// dependencies discovered during computation are tracked precisely,
// and errors propagate along the edges that actually caused them.
package eval

import "fmt"

// Key identifies a single node in the dependency graph: a family name
// (the kind of thing being computed, e.g. "parse" or "compile") paired
// with an argument scoping that family to one instance (e.g. a file
// path). Keys are comparable and safe to use as map keys.
type Key struct {
	Family   string
	Argument KeyArg
}

// NewKey constructs a Key from a family and argument.
func NewKey(family string, argument KeyArg) Key {
	return Key{Family: family, Argument: argument}
}

// String renders the key as "family(argument)", used for diagnostics,
// event Location fields, and error messages.
func (k Key) String() string {
	return fmt.Sprintf("%s(%s)", k.Family, k.Argument.String())
}

// KeyArg is the argument half of a Key. Implementations must be
// comparable (usable as a map key) so Key itself remains comparable.
type KeyArg interface {
	// String renders the argument for diagnostics.
	String() string
}

// StringArg is a KeyArg backed by a plain string, the common case for
// keys scoped by a name, path, or identifier.
type StringArg string

func (s StringArg) String() string { return string(s) }
