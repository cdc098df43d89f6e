package eval

import "testing"

func TestKeyString(t *testing.T) {
	k := NewKey("parse", StringArg("main.go"))
	if got, want := k.String(), "parse(main.go)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKeyComparable(t *testing.T) {
	a := NewKey("parse", StringArg("main.go"))
	b := NewKey("parse", StringArg("main.go"))
	c := NewKey("parse", StringArg("other.go"))

	m := map[Key]int{a: 1}
	if _, ok := m[b]; !ok {
		t.Error("equal keys should compare equal as map keys")
	}
	if _, ok := m[c]; ok {
		t.Error("distinct arguments should produce distinct keys")
	}
}
