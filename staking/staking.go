package staking

import (
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/callback"
	"github.com/meshsec/provider-core/decimal"
	"github.com/meshsec/provider-core/metrics"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/validatorset"
	"github.com/meshsec/provider-core/valuerange"
)

// VaultCollaborator is the slice of the vault Staking needs to call back
// into: releasing matured unbonds and propagating a validator slash.
// Declared here rather than depending on the vault package directly, so
// the vault ↔ staking cycle breaks on a typed handle.
type VaultCollaborator interface {
	callback.VaultReleaser
	callback.SlashSink
}

// Staking is the root of external-staking truth. Like the vault, every
// exported method assumes its caller serializes calls.
type Staking struct {
	log *zap.Logger
	cfg Config
	m   metrics.Metrics

	validators *validatorset.Set
	vault      VaultCollaborator
	transport  callback.StakingTransport // optional; nil in tests that never emit

	stakes        map[stakeKey]*Stake
	distributions map[addr.Valoper]*Distribution

	txs *txjournal.Journal[Tx]
}

// New returns a Staking module for the given validator set and vault
// collaborator. transport may be nil — ReceiveVirtualStake/Unstake skip
// emission and simply rely on the caller to ack directly via CommitStake
// etc., as tests do. A nil m reports to metrics.Noop().
func New(cfg Config, validators *validatorset.Set, vault VaultCollaborator, transport callback.StakingTransport, log *zap.Logger, m ...metrics.Metrics) *Staking {
	if log == nil {
		log = zap.NewNop()
	}
	reporter := metrics.Noop()
	if len(m) > 0 && m[0] != nil {
		reporter = m[0]
	}
	return &Staking{
		log:           log.With(zap.String("component", "staking")),
		cfg:           cfg,
		m:             reporter,
		validators:    validators,
		vault:         vault,
		transport:     transport,
		stakes:        make(map[stakeKey]*Stake),
		distributions: make(map[addr.Valoper]*Distribution),
		txs:           txjournal.New[Tx](),
	}
}

// Address implements callback.Destination: the identity the vault
// registers this module under.
func (s *Staking) Address() addr.Destination { return s.cfg.SelfAddress }

// MaxSlash implements callback.Destination: queried once by the vault at
// a user's first lien with this destination.
func (s *Staking) MaxSlash() uint64 { return s.cfg.MaxSlashPPM }

func (s *Staking) getOrCreateStake(key stakeKey) *Stake {
	st, ok := s.stakes[key]
	if !ok {
		st = &Stake{
			Amount:          valuerange.New(0),
			PointsAlignment: newPointsAlignment(),
		}
		s.stakes[key] = st
	}
	return st
}

func (s *Staking) getOrCreateDistribution(validator addr.Valoper) *Distribution {
	d, ok := s.distributions[validator]
	if !ok {
		d = newDistribution()
		s.distributions[validator] = d
	}
	return d
}

// ReceiveVirtualStake implements callback.Destination. It is called
// synchronously, in-process, by the vault immediately after the vault
// has reserved optimistic lien capacity for amount: this module decodes
// the payload to find the target validator, validates the denom and
// validator, opens its own tx (distinct from the vault's txID), and —
// if wired to a transport — emits the outbound Stake message.
func (s *Staking) ReceiveVirtualStake(owner addr.Address, amount uint64, vaultTxID uint64, payload []byte) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	p, err := DecodeStakePayload(payload)
	if err != nil {
		return err
	}
	if p.Denom != s.cfg.StakingDenom {
		return &ErrInvalidDenom{Expected: s.cfg.StakingDenom, Got: p.Denom}
	}
	v, ok := s.validators.Get(p.Validator)
	if !ok || !v.Active || v.Tombstoned {
		return ErrUnknownValidator
	}

	key := stakeKey{user: owner, validator: p.Validator}
	stake := s.getOrCreateStake(key)
	dist := s.getOrCreateDistribution(p.Validator)

	// Reserve optimistic capacity immediately, mirroring the vault's own
	// StakeRemote/CommitTx split: the hi bound grows the moment a virtual
	// stake is accepted, settling into lo only once CommitStake runs.
	stakePrepared, err := stake.Amount.PrepareAdd(amount)
	if err != nil {
		return err
	}
	distPrepared, err := dist.TotalStake.PrepareAdd(amount)
	if err != nil {
		return err
	}
	stake.Amount = stakePrepared
	dist.TotalStake = distPrepared
	s.m.SetExternalStake(p.Validator.String(), dist.TotalStake.Hi())

	id := s.txs.Open(func(id txjournal.ID) Tx {
		return Tx{ID: id, Kind: TxInFlightStake, Owner: owner, Validator: p.Validator, Amount: amount}
	})

	if s.transport != nil {
		if err := s.transport.EmitStake(owner, p.Validator, amount, vaultTxID, uint64(id)); err != nil {
			_ = s.RollbackStake(id)
			return err
		}
	}

	s.log.Info("opened inbound virtual stake",
		zap.Stringer("owner", owner), zap.Stringer("validator", p.Validator),
		zap.Uint64("amount", amount), zap.Uint64("tx_id", uint64(id)))
	return nil
}

// Unstake reduces a settled stake immediately (the decrement half of
// unstake), queues a PendingUnbond that matures after the unbonding
// period, and opens an InFlightUnstake tx mirroring the same
// prepare/commit/rollback shape stake uses, emitting an outbound message
// if wired to a transport.
func (s *Staking) Unstake(user addr.Address, validator addr.Valoper, amount uint64) (txjournal.ID, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	key := stakeKey{user: user, validator: validator}
	stake, ok := s.stakes[key]
	if !ok {
		return 0, ErrUnknownStake
	}
	if stake.Amount.Hi() < amount {
		return 0, &ErrInsufficientStake{Have: stake.Amount.Hi()}
	}

	prepared, err := stake.Amount.PrepareSub(amount)
	if err != nil {
		return 0, &ErrInsufficientStake{Have: stake.Amount.Hi()}
	}

	dist := s.getOrCreateDistribution(validator)
	distPrepared, err := dist.TotalStake.PrepareSub(amount)
	if err != nil {
		return 0, &ErrInsufficientStake{Have: stake.Amount.Hi()}
	}

	stake.Amount = prepared
	dist.TotalStake = distPrepared
	s.m.SetExternalStake(validator.String(), dist.TotalStake.Hi())
	stake.PointsAlignment.StakeDecreased(amount, dist.PointsPerShare)

	id := s.txs.Open(func(id txjournal.ID) Tx {
		return Tx{ID: id, Kind: TxInFlightUnstake, Owner: user, Validator: validator, Amount: amount}
	})
	stake.PendingUnbonds = append(stake.PendingUnbonds, PendingUnbond{
		TxID:      id,
		Amount:    amount,
		ReleaseAt: time.Now().Add(s.cfg.UnbondingPeriod),
	})

	if s.transport != nil {
		if err := s.transport.EmitUnstake(user, validator, amount, uint64(id)); err != nil {
			_ = s.RollbackUnstake(id)
			return 0, err
		}
	}

	s.log.Info("opened unstake",
		zap.Stringer("user", user), zap.Stringer("validator", validator),
		zap.Uint64("amount", amount), zap.Uint64("tx_id", uint64(id)))
	return id, nil
}

// WithdrawUnbonded sweeps every matured PendingUnbond across all of
// user's stakes, removing them, and releases the combined total back to
// the vault in a single ReleaseCrossStake call.
func (s *Staking) WithdrawUnbonded(user addr.Address) (uint64, error) {
	now := time.Now()
	var total uint64
	for key, stake := range s.stakes {
		if key.user != user {
			continue
		}
		remaining := stake.PendingUnbonds[:0]
		for _, pu := range stake.PendingUnbonds {
			if !pu.ReleaseAt.After(now) {
				total += pu.Amount
			} else {
				remaining = append(remaining, pu)
			}
		}
		stake.PendingUnbonds = remaining
	}
	if total == 0 {
		return 0, nil
	}
	if s.vault != nil {
		if err := s.vault.ReleaseCrossStake(s.Address(), user, total); err != nil {
			return 0, err
		}
	}
	s.log.Info("withdrew unbonded stake", zap.Stringer("user", user), zap.Uint64("total", total))
	return total, nil
}

// DistributeRewards folds amount reward tokens into validator's
// points-per-share pool, carrying the sub-share remainder forward
// exactly as vms/platformvm/reward/calculator.go's Split carries its
// remainder. Requires the validator to currently have settled stake to
// divide the reward across.
func (s *Staking) DistributeRewards(validator addr.Valoper, amount uint64) error {
	dist, ok := s.distributions[validator]
	if !ok || dist.TotalStake.Lo() == 0 {
		return ErrNoStake
	}

	p := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(ShareScale))
	p.Add(p, dist.PointsLeftover.ToBig())

	totalStake := new(big.Int).SetUint64(dist.TotalStake.Lo())
	delta := new(big.Int).Div(p, totalStake)
	leftover := new(big.Int).Mod(p, totalStake)

	deltaU256, overflow := uint256.FromBig(delta)
	if overflow {
		return fmt.Errorf("staking: reward delta overflows uint256")
	}
	leftoverU256, overflow := uint256.FromBig(leftover)
	if overflow {
		return fmt.Errorf("staking: reward leftover overflows uint256")
	}

	dist.PointsPerShare = new(uint256.Int).Add(dist.PointsPerShare, deltaU256)
	dist.PointsLeftover = leftoverU256
	s.m.IncRewardsDistributed(amount)

	s.log.Info("distributed rewards", zap.Stringer("validator", validator), zap.Uint64("amount", amount))
	return nil
}

// WithdrawRewards pays out a stake's currently pending reward and marks
// it withdrawn.
func (s *Staking) WithdrawRewards(user addr.Address, validator addr.Valoper) (uint64, error) {
	key := stakeKey{user: user, validator: validator}
	stake, ok := s.stakes[key]
	if !ok {
		return 0, ErrUnknownStake
	}
	dist := s.getOrCreateDistribution(validator)

	reward := pendingReward(stake.Amount.Lo(), dist.PointsPerShare, stake.PointsAlignment.Value(), stake.WithdrawnRewards)
	if reward == 0 {
		return 0, nil
	}
	stake.WithdrawnRewards += reward
	s.log.Info("withdrew rewards", zap.Stringer("user", user), zap.Stringer("validator", validator), zap.Uint64("amount", reward))
	return reward, nil
}

// PendingRewards is the read-only counterpart of WithdrawRewards.
func (s *Staking) PendingRewards(user addr.Address, validator addr.Valoper) (uint64, error) {
	key := stakeKey{user: user, validator: validator}
	stake, ok := s.stakes[key]
	if !ok {
		return 0, ErrUnknownStake
	}
	dist := s.getOrCreateDistribution(validator)
	return pendingReward(stake.Amount.Lo(), dist.PointsPerShare, stake.PointsAlignment.Value(), stake.WithdrawnRewards), nil
}

// HandleSlashing reduces every settled stake against validator by
// ratioPPM and propagates the same reduction to the vault's lien via
// AbsorbSlash, following the same uniform slashing rule throughout.
func (s *Staking) HandleSlashing(validator addr.Valoper, ratioPPM uint64) error {
	ratio := decimal.Decimal(ratioPPM)
	dist := s.getOrCreateDistribution(validator)

	for key, stake := range s.stakes {
		if key.validator != validator {
			continue
		}
		base := stake.Amount.Lo()
		if base == 0 {
			continue
		}
		newAmount := ratio.Complement().MulFloor(base)
		delta := base - newAmount
		if delta == 0 {
			continue
		}

		sub, err := stake.Amount.PrepareSub(delta)
		if err != nil {
			continue
		}
		stake.Amount = sub.CommitSub(delta)

		if distSub, err := dist.TotalStake.PrepareSub(delta); err == nil {
			dist.TotalStake = distSub.CommitSub(delta)
		}

		if s.vault != nil {
			if err := s.vault.AbsorbSlash(s.Address(), key.user, base, ratioPPM); err != nil {
				s.log.Error("vault rejected slash propagation",
					zap.Stringer("user", key.user), zap.Stringer("validator", validator), zap.Error(err))
			}
		}
	}

	s.m.SetExternalStake(validator.String(), dist.TotalStake.Hi())
	s.m.IncSlashEvents(validator.String())
	s.log.Info("handled slashing", zap.Stringer("validator", validator), zap.Uint64("ratio_ppm", ratioPPM))
	return nil
}
