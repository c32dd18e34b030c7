package staking

import (
	"math/big"

	"github.com/holiman/uint256"
)

// PointsAlignment is the signed correction a Stake carries so that
// reward(stake) = (points_per_share * stake.amount + alignment) /
// ShareScale always reflects only rewards distributed after the stake's
// last size change, never rewards the pool had already accrued against
// points-per-share before this stake existed or grew. It is signed
// because growing a stake after points-per-share is already nonzero
// must subtract the points that growth would otherwise spuriously
// claim.
type PointsAlignment struct {
	v *big.Int
}

func newPointsAlignment() *PointsAlignment {
	return &PointsAlignment{v: new(big.Int)}
}

// StakeIncreased records that the stake grew by delta while
// points-per-share stood at pps: the new slice of stake must not claim
// rewards distributed before it existed, so alignment moves down by
// pps*delta.
func (p *PointsAlignment) StakeIncreased(delta uint64, pps *uint256.Int) {
	d := new(big.Int).Mul(pps.ToBig(), new(big.Int).SetUint64(delta))
	p.v.Sub(p.v, d)
}

// StakeDecreased is StakeIncreased's mirror for a shrink: the removed
// slice's already-accrued claim on points-per-share must stay with the
// remaining stake, so alignment moves up by pps*delta.
func (p *PointsAlignment) StakeDecreased(delta uint64, pps *uint256.Int) {
	d := new(big.Int).Mul(pps.ToBig(), new(big.Int).SetUint64(delta))
	p.v.Add(p.v, d)
}

// Value returns a defensive copy of the current alignment.
func (p *PointsAlignment) Value() *big.Int {
	return new(big.Int).Set(p.v)
}

// pendingReward computes floor((pps*amount + alignment) / ShareScale) -
// withdrawn, clamped at zero: the total a stake is owed from its
// validator's distribution pool right now, less what it already drew.
func pendingReward(amount uint64, pps *uint256.Int, alignment *big.Int, withdrawn uint64) uint64 {
	num := new(big.Int).Mul(pps.ToBig(), new(big.Int).SetUint64(amount))
	num.Add(num, alignment)
	num.Div(num, big.NewInt(ShareScale))
	num.Sub(num, new(big.Int).SetUint64(withdrawn))
	if num.Sign() <= 0 {
		return 0
	}
	if !num.IsUint64() {
		return ^uint64(0)
	}
	return num.Uint64()
}
