// Package staking implements the external-staking accounting component:
// per-(user, validator) stake tracking, points-per-share reward
// distribution, pending unbonds, and slashing against a remote staking
// destination reached over the transport.
//
// Grounded on vms/platformvm/reward/calculator.go's big.Int-ratio Split
// style for the reward math, and vault's tx-journal/additive-range shape
// for the in-flight stake/unstake bookkeeping.
package staking

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/valuerange"
)

// Config is external-staking's immutable init-time configuration.
type Config struct {
	StakingDenom       string
	RewardsDenom       string
	SelfAddress        addr.Destination // this module's identity as a vault destination
	AuthorizedEndpoint addr.Destination // the vault's address; carried in config only, ReceiveVirtualStake takes no caller and does not check one against it
	UnbondingPeriod    time.Duration
	MaxSlashPPM        uint64 // queried once by the vault at first lien, see decimal.Denominator
}

type stakeKey struct {
	user      addr.Address
	validator addr.Valoper
}

// PendingUnbond is one matured-or-maturing slice of an unstake, held
// until WithdrawUnbonded claims it back from the vault.
type PendingUnbond struct {
	TxID      txjournal.ID
	Amount    uint64
	ReleaseAt time.Time
}

// Stake is the per-(user, validator) ledger row.
type Stake struct {
	Amount           valuerange.Range
	PointsAlignment  *PointsAlignment
	WithdrawnRewards uint64
	PendingUnbonds   []PendingUnbond
}

// Distribution is the per-validator reward-sharing pool: the
// points-per-share accumulator every Stake's alignment is measured
// against, plus the sub-share remainder carried to the next distribution.
type Distribution struct {
	TotalStake     valuerange.Range
	PointsPerShare *uint256.Int
	PointsLeftover *uint256.Int
}

func newDistribution() *Distribution {
	return &Distribution{
		TotalStake:     valuerange.New(0),
		PointsPerShare: new(uint256.Int),
		PointsLeftover: new(uint256.Int),
	}
}

// TxKind distinguishes the two in-flight operation shapes an
// external-staking tx can represent.
type TxKind int

const (
	TxInFlightStake TxKind = iota
	TxInFlightUnstake
)

func (k TxKind) String() string {
	if k == TxInFlightStake {
		return "stake"
	}
	return "unstake"
}

// Tx is an in-flight, prepared-but-unresolved external-staking
// operation. Its ID lives in this package's own journal, distinct
// from the vault's tx id for the same logical transfer.
type Tx struct {
	ID        txjournal.ID
	Kind      TxKind
	Owner     addr.Address
	Validator addr.Valoper
	Amount    uint64
}

// User satisfies txjournal.Row.
func (t Tx) User() string { return t.Owner.String() }

// ShareScale is the fixed-point scale points-per-share is tracked at.
const ShareScale = 1_000_000_000
