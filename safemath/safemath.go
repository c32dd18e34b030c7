// Package safemath provides overflow-checked arithmetic over uint64,
// mirroring the narrow checked-add/sub helpers a reward calculator
// leans on (see DESIGN.md). valuerange uses these so that a
// caller-facing overflow surfaces as a typed error rather than wrapping
// silently or panicking — panics are reserved for valuerange's own
// lo<=hi invariant.
package safemath

import "errors"

// ErrOverflow is returned by Add64 when a+b would exceed math.MaxUint64.
var ErrOverflow = errors.New("safemath: overflow")

// ErrUnderflow is returned by Sub64 when a-b would be negative.
var ErrUnderflow = errors.New("safemath: underflow")

// Add64 returns a+b, or ErrOverflow if the sum overflows uint64.
func Add64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub64 returns a-b, or ErrUnderflow if b > a.
func Sub64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}
