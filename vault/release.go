package vault

import (
	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/decimal"
)

// ReleaseCrossStake is called by a destination reporting that an
// unstake has cleared; it commits immediately since this path only runs
// post-ack.
func (v *Vault) ReleaseCrossStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	key := lienKey{user: owner, dest: caller}
	lien, ok := v.liens[key]
	if !ok {
		return ErrUnknownLienholder
	}
	if lien.Amount.Hi() < amount {
		return ErrInsufficientLien
	}

	reduced, err := lien.Amount.PrepareSub(amount)
	if err != nil {
		return ErrInsufficientLien
	}
	lien.Amount = reduced.CommitSub(amount)

	v.recomputeAggregates(owner)
	v.log.Info("released cross stake", zap.Stringer("owner", owner), zap.Stringer("destination", caller), zap.Uint64("amount", amount))
	return nil
}

// ReleaseLocalStake mirrors ReleaseCrossStake for the local staking
// collaborator, whose identity is checked against the registered local
// staking handle rather than an arbitrary destination.
func (v *Vault) ReleaseLocalStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	if v.local == nil || v.localInfo.ContractAddr != caller {
		return ErrUnauthorized
	}
	return v.ReleaseCrossStake(caller, owner, amount)
}

// AbsorbSlash implements callback.SlashSink: proportional reduction of
// an owner's lien at destination, and of their bonded collateral,
// following the uniform slashing propagation rule exactly:
// lien.amount <- floor(lien.amount * (1-r)); collateral <- collateral -
// floor(lien.amount_before * r) — not "slashed_amount * r".
func (v *Vault) AbsorbSlash(destination addr.Destination, owner addr.Address, lienAmountBefore uint64, ratioPPM uint64) error {
	key := lienKey{user: owner, dest: destination}
	lien, ok := v.liens[key]
	if !ok {
		return ErrUnknownLienholder
	}
	u, err := v.getUser(owner)
	if err != nil {
		return err
	}

	ratio := decimal.Decimal(ratioPPM)
	base := lien.Amount.Lo() // committed amount: slashing only ever applies to settled state
	collateralReduction := ratio.MulFloor(base)
	newLienAmount := ratio.Complement().MulFloor(base)

	// Both bounds drop together by the same delta, preserving any
	// in-flight gap: a slash is applied to committed state and never
	// left half-applied.
	delta := base - newLienAmount
	if delta > 0 {
		sub, err := lien.Amount.PrepareSub(delta)
		if err != nil {
			return err
		}
		lien.Amount = sub.CommitSub(delta)
	}

	if collateralReduction > u.Collateral {
		collateralReduction = u.Collateral
	}
	u.Collateral -= collateralReduction
	v.totalCollateral -= collateralReduction
	v.m.SetBondedCollateral(v.totalCollateral)

	v.recomputeAggregates(owner)
	v.log.Info("absorbed slash",
		zap.Stringer("owner", owner), zap.Stringer("destination", destination),
		zap.Uint64("lien_before_reported", lienAmountBefore), zap.Uint64("lien_before_committed", base),
		zap.Uint64("collateral_reduction", collateralReduction))
	return nil
}
