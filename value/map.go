package value

import (
	"fmt"
	"sort"
	"strings"
)

// IsMapKey reports whether v's tag is a permitted MapKey tag: INT64, UINT64,
// STRING, or BOOL. DOUBLE, BYTES, MESSAGE, and every composite tag are
// excluded.
func IsMapKey(v Value) bool {
	if v == nil {
		return false
	}
	switch v.Tag() {
	case INT64, UINT64, STRING, BOOL:
		return true
	default:
		return false
	}
}

// mapEntry stores one key/value pair plus the key's original Value (so
// Keys()/Pairs() can hand back the exact typed key, not just its hash).
type mapEntry struct {
	key Value
	val Value
}

// Map is an immutable, structurally-shared mapping from MapKey to Value.
// Iteration order is not part of the contract; Pairs returns keys sorted
// by hash for deterministic test output only.
type Map struct {
	pairs map[string]mapEntry
}

// NewMap builds an empty Map.
func NewMap() *Map {
	return &Map{pairs: make(map[string]mapEntry)}
}

func (*Map) Tag() Tag { return MAP }

func (m *Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, h := range m.sortedHashes() {
		if i > 0 {
			b.WriteString(", ")
		}
		e := m.pairs[h]
		fmt.Fprintf(&b, "%s: %s", e.key.String(), e.val.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (m *Map) Truthy() bool { return true }

func (m *Map) Len() int { return len(m.pairs) }

func mapKeyHash(k Value) string {
	return fmt.Sprintf("%d:%s", k.Tag(), k.String())
}

// Get looks up a key (must satisfy IsMapKey; callers validate before use).
func (m *Map) Get(k Value) (Value, bool) {
	e, ok := m.pairs[mapKeyHash(k)]
	if !ok {
		return nil, false
	}
	return e.val, true
}

// Set returns a new Map with k bound to v.
func (m *Map) Set(k, v Value) *Map {
	cp := make(map[string]mapEntry, len(m.pairs)+1)
	for h, e := range m.pairs {
		cp[h] = e
	}
	cp[mapKeyHash(k)] = mapEntry{key: k, val: v}
	return &Map{pairs: cp}
}

// Delete returns a new Map with k removed (a no-op copy if k is absent).
func (m *Map) Delete(k Value) *Map {
	h := mapKeyHash(k)
	if _, ok := m.pairs[h]; !ok {
		return m
	}
	cp := make(map[string]mapEntry, len(m.pairs))
	for eh, e := range m.pairs {
		if eh != h {
			cp[eh] = e
		}
	}
	return &Map{pairs: cp}
}

func (m *Map) sortedHashes() []string {
	hashes := make([]string, 0, len(m.pairs))
	for h := range m.pairs {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

// Keys returns the map's keys in a deterministic (but otherwise
// unspecified) order. Iteration order is explicitly not part of the
// contract, so callers must not depend on it across implementations.
func (m *Map) Keys() []Value {
	hashes := m.sortedHashes()
	keys := make([]Value, len(hashes))
	for i, h := range hashes {
		keys[i] = m.pairs[h].key
	}
	return keys
}

// Pairs returns the map's entries in the same deterministic order as Keys.
func (m *Map) Pairs() [][2]Value {
	hashes := m.sortedHashes()
	out := make([][2]Value, len(hashes))
	for i, h := range hashes {
		e := m.pairs[h]
		out[i] = [2]Value{e.key, e.val}
	}
	return out
}

func (m *Map) equal(o *Map) bool {
	if m == o {
		return true
	}
	if len(m.pairs) != len(o.pairs) {
		return false
	}
	for h, e := range m.pairs {
		oe, ok := o.pairs[h]
		if !ok || !Equal(e.val, oe.val) {
			return false
		}
	}
	return true
}
