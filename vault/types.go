package vault

import (
	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/decimal"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/valuerange"
)

// Config is the vault's immutable init-time configuration.
type Config struct {
	CollateralDenom string
}

// UserInfo is the per-user collateral ledger.
type UserInfo struct {
	Collateral     uint64
	MaxLien        valuerange.Range
	TotalSlashable valuerange.Range
}

// FreeCollateral derives the user's unencumbered collateral: the amount
// still available to unbond given the worst-case (optimistic high)
// resolution of outstanding liens.
func (u UserInfo) FreeCollateral() uint64 {
	encumbered := u.MaxLien.Hi()
	if u.TotalSlashable.Hi() > encumbered {
		encumbered = u.TotalSlashable.Hi()
	}
	if encumbered > u.Collateral {
		return 0
	}
	return u.Collateral - encumbered
}

// CollateralRule reports whether max(max_lien.hi, total_slashable.hi) <=
// collateral, the vault's core solvency invariant.
func (u UserInfo) CollateralRule() bool {
	encumbered := u.MaxLien.Hi()
	if u.TotalSlashable.Hi() > encumbered {
		encumbered = u.TotalSlashable.Hi()
	}
	return encumbered <= u.Collateral
}

// Lien is a single destination's claim on a user's collateral, keyed by
// (user, destination).
type Lien struct {
	Amount    valuerange.Range
	Slashable decimal.Decimal
}

// LocalStaking captures the local staking collaborator's identity and
// slash cap at vault init, so StakeLocal and ReleaseLocalStake don't
// need to re-derive them from the collaborator on every call.
type LocalStaking struct {
	ContractAddr addr.Destination
	MaxSlash     decimal.Decimal
}

// TxKind distinguishes the two in-flight operation shapes a vault tx can
// represent.
type TxKind int

const (
	TxStake TxKind = iota
	TxUnstake
)

func (k TxKind) String() string {
	if k == TxStake {
		return "stake"
	}
	return "unstake"
}

// Tx is an in-flight, prepared-but-unresolved cross-chain operation.
type Tx struct {
	ID          txjournal.ID
	Kind        TxKind
	Owner       addr.Address
	Destination addr.Destination
	Amount      uint64
	Slashable   decimal.Decimal
}

// User satisfies txjournal.Row, grouping this tx under its owner for
// pending-sum queries.
func (t Tx) User() string { return t.Owner.String() }
