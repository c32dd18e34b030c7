package vault

import (
	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/valuerange"
)

// CommitTx finalizes an outstanding tx: callable only by the destination
// recorded on it.
func (v *Vault) CommitTx(caller addr.Destination, id txjournal.ID) error {
	tx, err := v.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Destination != caller {
		return ErrWrongContractTx
	}

	key := lienKey{user: tx.Owner, dest: tx.Destination}
	lien, ok := v.liens[key]
	if !ok {
		return ErrUnknownLienholder
	}
	u, err := v.getUser(tx.Owner)
	if err != nil {
		return err
	}

	switch tx.Kind {
	case TxStake:
		lien.Amount = lien.Amount.CommitAdd(tx.Amount)
		// max_lien tracks the largest lien across destinations, not
		// their sum: fold this destination's now-committed amount into
		// the running max instead of adding it on top.
		u.MaxLien = valuerange.Max(u.MaxLien, lien.Amount)
		u.TotalSlashable = u.TotalSlashable.CommitAdd(tx.Slashable.MulFloor(tx.Amount))
	case TxUnstake:
		// Included for data-model fidelity with Tx.Kind; no documented
		// vault command ever opens an Unstake-kind tx — unstake
		// reduction is synchronous via ReleaseCrossStake once the
		// external-staking side's own unbonding queue matures. A
		// shrink needs the full recompute, not incremental tracking,
		// since it may reveal a lower true maximum across destinations.
		lien.Amount = lien.Amount.CommitSub(tx.Amount)
		v.recomputeAggregates(tx.Owner)
	}

	if !u.CollateralRule() {
		panic("vault: collateral rule violated after commit, invariant breach")
	}

	if err := v.txs.Remove(id); err != nil {
		return err
	}
	v.m.IncTxCommitted()
	v.log.Info("committed tx", zap.Uint64("tx_id", uint64(id)), zap.Stringer("user", tx.Owner), zap.Stringer("destination", tx.Destination))
	return nil
}

// RollbackTx unwinds an outstanding tx's optimistic reservation.
// Callable only by the destination recorded on it. Rolling back an
// un-prepared or already-resolved tx fails, never silently noops.
func (v *Vault) RollbackTx(caller addr.Destination, id txjournal.ID) error {
	return v.rollbackStakeTx(caller, id)
}

func (v *Vault) rollbackStakeTx(caller addr.Destination, id txjournal.ID) error {
	tx, err := v.txs.Get(id)
	if err != nil {
		return ErrUnknownTx
	}
	if tx.Destination != caller {
		return ErrWrongContractTx
	}

	key := lienKey{user: tx.Owner, dest: tx.Destination}
	if lien, ok := v.liens[key]; ok {
		switch tx.Kind {
		case TxStake:
			// A shrink on this destination may uncover a lower true
			// maximum across the user's other destinations, which an
			// incremental rollback on max_lien alone cannot discover.
			lien.Amount = lien.Amount.RollbackAdd(tx.Amount)
			v.recomputeAggregates(tx.Owner)
		case TxUnstake:
			lien.Amount = lien.Amount.RollbackSub(tx.Amount)
			v.recomputeAggregates(tx.Owner)
		}
	}

	if err := v.txs.Remove(id); err != nil {
		return err
	}
	v.m.IncTxRolledBack()
	v.log.Info("rolled back tx", zap.Uint64("tx_id", uint64(id)), zap.Stringer("user", tx.Owner), zap.Stringer("destination", tx.Destination))
	return nil
}
