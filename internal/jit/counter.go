package jit

// Diff returns a-b as a signed distance on the free-running 32-bit
// microsecond counter, correctly handling wraparound: it treats the
// unsigned subtraction as a signed 32-bit value rather than comparing a and
// b directly, so "before/after" stays correct across a wrap.
func Diff(a, b uint32) int32 {
	return int32(a - b)
}

// Before reports whether counter value a occurred strictly before b,
// wrap-safe.
func Before(a, b uint32) bool {
	return Diff(a, b) < 0
}

// AfterOrEqual reports whether a occurred at or after b, wrap-safe.
func AfterOrEqual(a, b uint32) bool {
	return Diff(a, b) >= 0
}
