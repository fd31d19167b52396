package value

import "strings"

// List is an ordered, immutable, structurally-shared sequence of Values.
// Every mutator returns a new *List; the receiver is untouched,
// so two Values may alias the same backing array without observing each
// other's edits.
type List struct {
	elems []Value
}

// NewList builds a List from the given elements. The slice is copied so the
// caller's backing array can be reused safely afterward.
func NewList(elems ...Value) *List {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return &List{elems: cp}
}

func (*List) Tag() Tag { return LIST }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l.elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (l *List) Truthy() bool { return true }

// Len returns the element count (used by the len() native).
func (l *List) Len() int { return len(l.elems) }

// Get returns the 0-based element at i, or (nil, false) if out of range.
func (l *List) Get(i int) (Value, bool) {
	if i < 0 || i >= len(l.elems) {
		return nil, false
	}
	return l.elems[i], true
}

// Set returns a new List with index i replaced by v; out-of-range i leaves
// the list unchanged (caller validates range before calling when a strict
// OUT_OF_RANGE error is required).
func (l *List) Set(i int, v Value) *List {
	if i < 0 || i >= len(l.elems) {
		return l
	}
	cp := make([]Value, len(l.elems))
	copy(cp, l.elems)
	cp[i] = v
	return &List{elems: cp}
}

// Append returns a new List with v appended.
func (l *List) Append(v Value) *List {
	cp := make([]Value, len(l.elems)+1)
	copy(cp, l.elems)
	cp[len(l.elems)] = v
	return &List{elems: cp}
}

// Elements exposes the backing slice for iteration. Callers must not mutate
// the returned slice; it may be shared with other List handles.
func (l *List) Elements() []Value { return l.elems }

func (l *List) equal(o *List) bool {
	if l == o {
		return true
	}
	if len(l.elems) != len(o.elems) {
		return false
	}
	for i := range l.elems {
		if !Equal(l.elems[i], o.elems[i]) {
			return false
		}
	}
	return true
}
