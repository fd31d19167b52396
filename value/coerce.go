package value

// CoerceArgCount implements the argcount coercion rule: INT64/UINT64 are
// accepted directly; DOUBLE is clamped to
// [0, 2^32-1] and truncated. Any other tag, or a negative INT64, fails.
func CoerceArgCount(v Value) (uint32, bool) {
	switch n := v.(type) {
	case Int64:
		if n < 0 {
			return 0, false
		}
		if uint64(n) > 0xFFFFFFFF {
			return 0, false
		}
		return uint32(n), true
	case Uint64:
		if uint64(n) > 0xFFFFFFFF {
			return 0, false
		}
		return uint32(n), true
	case Double:
		f := float64(n)
		if f < 0 {
			f = 0
		}
		if f > 0xFFFFFFFF {
			f = 0xFFFFFFFF
		}
		return uint32(f), true
	default:
		return 0, false
	}
}
