// Package valuerange implements an optimistic range primitive: a pair
// (lo, hi) tracking what a quantity would be under the worst-case (all
// in-flight ops roll back) and best-case (all commit) resolutions of
// outstanding transactions.
//
// The shape mirrors a committed-vs-optimistic overlay (as in
// vms/platformvm/state/diff.go), generalized from a whole-state diff
// down to a single scalar quantity.
package valuerange

import (
	"errors"
	"fmt"

	"github.com/meshsec/provider-core/safemath"
)

// ErrOverflow is returned by PrepareAdd/PrepareAddMax when the optimistic
// high bound would exceed the given cap.
var ErrOverflow = errors.New("valuerange: overflow")

// ErrUnderflow is returned by PrepareSub/PrepareSubMin when the committed
// low bound would drop below the given floor.
var ErrUnderflow = errors.New("valuerange: underflow")

// Range is the (lo, hi) pair for a uint64 quantity under in-flight
// optimistic operations. The zero value is a valid range equal to New(0).
type Range struct {
	lo uint64
	hi uint64
}

// New returns a Range with no in-flight operations: lo == hi == v.
func New(v uint64) Range {
	return Range{lo: v, hi: v}
}

// Lo is the value that would hold if every in-flight operation rolled back.
func (r Range) Lo() uint64 { return r.lo }

// Hi is the value that would hold if every in-flight operation committed.
func (r Range) Hi() uint64 { return r.hi }

func (r Range) assertValid() {
	if r.lo > r.hi {
		panic(fmt.Sprintf("valuerange: invariant violated, lo=%d > hi=%d", r.lo, r.hi))
	}
}

// PrepareAdd raises hi by v, reserving optimistic capacity for an
// in-flight add that has not yet committed.
func (r Range) PrepareAdd(v uint64) (Range, error) {
	return r.PrepareAddMax(v, ^uint64(0))
}

// PrepareAddMax is PrepareAdd with an explicit cap: fails with ErrOverflow
// if hi+v would exceed cap.
func (r Range) PrepareAddMax(v uint64, cap uint64) (Range, error) {
	hi, err := safemath.Add64(r.hi, v)
	if err != nil || hi > cap {
		return r, ErrOverflow
	}
	out := Range{lo: r.lo, hi: hi}
	out.assertValid()
	return out, nil
}

// CommitAdd raises lo by v: the in-flight add has been acknowledged and
// is now reflected in the pessimistic (guaranteed) bound.
func (r Range) CommitAdd(v uint64) Range {
	lo, err := safemath.Add64(r.lo, v)
	if err != nil {
		panic("valuerange: CommitAdd overflow, caller committed more than was ever prepared")
	}
	out := Range{lo: lo, hi: r.hi}
	out.assertValid()
	return out
}

// RollbackAdd lowers hi by v: the in-flight add has been cancelled, so
// the optimistic bound no longer reserves capacity for it.
func (r Range) RollbackAdd(v uint64) Range {
	hi, err := safemath.Sub64(r.hi, v)
	if err != nil {
		panic("valuerange: RollbackAdd underflow, caller rolled back more than was ever prepared")
	}
	out := Range{lo: r.lo, hi: hi}
	out.assertValid()
	return out
}

// PrepareSub lowers lo by v, reserving the worst case that the
// in-flight subtraction commits.
func (r Range) PrepareSub(v uint64) (Range, error) {
	return r.PrepareSubMin(v, 0)
}

// PrepareSubMin is PrepareSub with an explicit floor: fails with
// ErrUnderflow if lo < min+v.
func (r Range) PrepareSubMin(v uint64, min uint64) (Range, error) {
	floor, err := safemath.Add64(min, v)
	if err != nil || r.lo < floor {
		return r, ErrUnderflow
	}
	lo, err := safemath.Sub64(r.lo, v)
	if err != nil {
		return r, ErrUnderflow
	}
	out := Range{lo: lo, hi: r.hi}
	out.assertValid()
	return out, nil
}

// CommitSub lowers hi by v: the in-flight subtraction has been
// acknowledged and is now reflected in the optimistic bound too.
func (r Range) CommitSub(v uint64) Range {
	hi, err := safemath.Sub64(r.hi, v)
	if err != nil {
		panic("valuerange: CommitSub underflow, caller committed more than was ever prepared")
	}
	out := Range{lo: r.lo, hi: hi}
	out.assertValid()
	return out
}

// RollbackSub raises lo by v: the in-flight subtraction has been
// cancelled, so the pessimistic bound no longer assumes it happened.
func (r Range) RollbackSub(v uint64) Range {
	lo, err := safemath.Add64(r.lo, v)
	if err != nil {
		panic("valuerange: RollbackSub overflow")
	}
	out := Range{lo: lo, hi: r.hi}
	out.assertValid()
	return out
}

// ValidMax reports whether hi <= cap.
func (r Range) ValidMax(cap uint64) bool { return r.hi <= cap }

// ValidMin reports whether lo >= floor.
func (r Range) ValidMin(floor uint64) bool { return r.lo >= floor }

// Contains reports whether lo <= x <= hi.
func (r Range) Contains(x uint64) bool { return r.lo <= x && x <= r.hi }

// Add combines two ranges componentwise: (a.lo+b.lo, a.hi+b.hi).
func Add(a, b Range) Range {
	lo, err := safemath.Add64(a.lo, b.lo)
	if err != nil {
		panic("valuerange: Add overflow on lo")
	}
	hi, err := safemath.Add64(a.hi, b.hi)
	if err != nil {
		panic("valuerange: Add overflow on hi")
	}
	out := Range{lo: lo, hi: hi}
	out.assertValid()
	return out
}

// Max combines two ranges componentwise: (max(a.lo,b.lo), max(a.hi,b.hi)).
// Unlike Add, this can never overflow: the result's bounds are each no
// larger than one of the inputs'.
func Max(a, b Range) Range {
	lo := a.lo
	if b.lo > lo {
		lo = b.lo
	}
	hi := a.hi
	if b.hi > hi {
		hi = b.hi
	}
	out := Range{lo: lo, hi: hi}
	out.assertValid()
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.lo, r.hi)
}
