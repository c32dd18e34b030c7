package staking

import (
	"go.uber.org/zap"

	"github.com/meshsec/provider-core/txjournal"
)

// CommitStake finalizes an in-flight virtual stake once the transport
// acks it: the stake's amount and its validator's total stake both
// settle via commit_add, and the stake's points-alignment is adjusted so
// the newly-settled slice does not retroactively claim rewards
// distributed before it existed.
func (s *Staking) CommitStake(id txjournal.ID) error {
	tx, err := s.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Kind != TxInFlightStake {
		return ErrWrongTxKind
	}

	key := stakeKey{user: tx.Owner, validator: tx.Validator}
	stake := s.getOrCreateStake(key)
	dist := s.getOrCreateDistribution(tx.Validator)

	stake.Amount = stake.Amount.CommitAdd(tx.Amount)
	stake.PointsAlignment.StakeIncreased(tx.Amount, dist.PointsPerShare)
	dist.TotalStake = dist.TotalStake.CommitAdd(tx.Amount)

	if err := s.txs.Remove(id); err != nil {
		return err
	}
	s.log.Info("committed stake", zap.Uint64("tx_id", uint64(id)), zap.Stringer("owner", tx.Owner), zap.Stringer("validator", tx.Validator))
	return nil
}

// RollbackStake cancels an in-flight virtual stake that was never
// settled by the destination: the optimistic reservation ReceiveVirtualStake
// made via PrepareAdd must be unwound via RollbackAdd, lowering the hi
// bound back down; the lo bound was never touched, since that only
// happens at CommitStake.
func (s *Staking) RollbackStake(id txjournal.ID) error {
	tx, err := s.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Kind != TxInFlightStake {
		return ErrWrongTxKind
	}

	key := stakeKey{user: tx.Owner, validator: tx.Validator}
	if stake, ok := s.stakes[key]; ok {
		dist := s.getOrCreateDistribution(tx.Validator)
		stake.Amount = stake.Amount.RollbackAdd(tx.Amount)
		dist.TotalStake = dist.TotalStake.RollbackAdd(tx.Amount)
		// A stake entry created just for this tx is left with nothing in
		// it once rolled back; drop it so StakeOf reports it unknown again.
		if stake.Amount.Hi() == 0 && len(stake.PendingUnbonds) == 0 && stake.WithdrawnRewards == 0 && stake.PointsAlignment.Value().Sign() == 0 {
			delete(s.stakes, key)
		}
	}

	if err := s.txs.Remove(id); err != nil {
		return err
	}
	s.log.Info("rolled back stake", zap.Uint64("tx_id", uint64(id)), zap.Stringer("owner", tx.Owner), zap.Stringer("validator", tx.Validator))
	return nil
}

// CommitUnstake finalizes an in-flight unstake: Unstake already lowered
// both lo bounds (via PrepareSub) the moment it was called, so
// committing only needs to lower the hi bounds to match.
func (s *Staking) CommitUnstake(id txjournal.ID) error {
	tx, err := s.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Kind != TxInFlightUnstake {
		return ErrWrongTxKind
	}

	key := stakeKey{user: tx.Owner, validator: tx.Validator}
	stake, ok := s.stakes[key]
	if !ok {
		return ErrUnknownStake
	}
	dist := s.getOrCreateDistribution(tx.Validator)

	stake.Amount = stake.Amount.CommitSub(tx.Amount)
	dist.TotalStake = dist.TotalStake.CommitSub(tx.Amount)

	if err := s.txs.Remove(id); err != nil {
		return err
	}
	s.log.Info("committed unstake", zap.Uint64("tx_id", uint64(id)), zap.Stringer("owner", tx.Owner), zap.Stringer("validator", tx.Validator))
	return nil
}

// RollbackUnstake undoes an in-flight unstake's optimistic reduction:
// the stake never actually left, so the PrepareSub/StakeDecreased/
// PendingUnbond that Unstake recorded up front must all be reversed.
func (s *Staking) RollbackUnstake(id txjournal.ID) error {
	tx, err := s.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Kind != TxInFlightUnstake {
		return ErrWrongTxKind
	}

	key := stakeKey{user: tx.Owner, validator: tx.Validator}
	if stake, ok := s.stakes[key]; ok {
		dist := s.getOrCreateDistribution(tx.Validator)

		stake.Amount = stake.Amount.RollbackSub(tx.Amount)
		dist.TotalStake = dist.TotalStake.RollbackSub(tx.Amount)
		stake.PointsAlignment.StakeIncreased(tx.Amount, dist.PointsPerShare)

		kept := stake.PendingUnbonds[:0]
		for _, pu := range stake.PendingUnbonds {
			if pu.TxID != id {
				kept = append(kept, pu)
			}
		}
		stake.PendingUnbonds = kept
	}

	if err := s.txs.Remove(id); err != nil {
		return err
	}
	s.log.Info("rolled back unstake", zap.Uint64("tx_id", uint64(id)), zap.Stringer("owner", tx.Owner), zap.Stringer("validator", tx.Validator))
	return nil
}
