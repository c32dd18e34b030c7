// Package decimal implements the fixed-point fraction type used for
// slashable fractions and slash ratios throughout vault and staking,
// scaled the same way reward.PercentDenominator scales reward-share
// percentages (vms/platformvm/reward/config.go).
package decimal

import "github.com/holiman/uint256"

// Denominator is the fixed-point scale: a Decimal of Denominator means 1.0.
const Denominator = 1_000_000

// Decimal is a value in [0, Denominator] representing a fraction in [0,1].
type Decimal uint64

// Zero is the additive identity.
const Zero Decimal = 0

// One represents the fraction 1.0.
const One Decimal = Denominator

// FromPercent converts a whole-number percentage (e.g. 10 for 10%) to a
// Decimal.
func FromPercent(p uint64) Decimal {
	return Decimal(p * Denominator / 100)
}

// Complement returns 1 - d.
func (d Decimal) Complement() Decimal {
	if d > One {
		return Zero
	}
	return One - d
}

// MulFloor returns floor(amount * d), using a 256-bit intermediate so
// that amount*Denominator never overflows uint64, the same way the
// underlying staking math keeps at least 192 useful bits of headroom
// for its own fixed-point multiplies.
func (d Decimal) MulFloor(amount uint64) uint64 {
	prod := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(uint64(d)))
	prod.Div(prod, uint256.NewInt(Denominator))
	return prod.Uint64()
}
