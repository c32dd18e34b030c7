package transport

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/staking"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/vault"
)

// ErrUnknownCorrelation is returned by Ack for a staking tx id the
// dispatcher never emitted (already acked, or never opened).
var ErrUnknownCorrelation = errors.New("transport: unknown correlation")

type correlation struct {
	kind       MessageType
	vaultTxID  txjournal.ID
	hasVaultTx bool
}

// Dispatcher implements callback.StakingTransport and is the only
// library component in this module that imports both vault and staking
// as concrete types (cmd/meshd, which wires them, is the other
// importer): it remembers, per staking tx id, the paired vault tx
// id opened for the same virtual stake, and drives both sides' commit
// or rollback together once a remote ack arrives. Unstakes have no
// paired vault tx — Unstake's vault-side effect is only settled later,
// at WithdrawUnbonded/ReleaseCrossStake time, once the amount is
// actually mature — so Ack only touches staking for those.
type Dispatcher struct {
	log     *zap.Logger
	vault   *vault.Vault
	staking *staking.Staking

	mu      sync.Mutex
	pending map[uint64]correlation

	hub *Hub
}

func NewDispatcher(v *vault.Vault, s *staking.Staking, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		log:     log.With(zap.String("component", "transport.dispatcher")),
		vault:   v,
		staking: s,
		pending: make(map[uint64]correlation),
	}
}

// AttachHub wires the dispatcher to the websocket hub that actually
// pushes envelopes to the remote system. Without a hub, Emit* still
// records the correlation (so Ack can still be driven directly, as the
// tests do) but nothing is sent anywhere.
func (d *Dispatcher) AttachHub(h *Hub) { d.hub = h }

// AttachStaking binds the staking collaborator after construction. This
// breaks a genuine construction cycle: the dispatcher must exist before
// staking.New (it's staking's callback.StakingTransport), but the
// dispatcher can't correlate acks back into staking until staking
// exists. Callers build NewDispatcher(v, nil, log), pass the dispatcher
// into staking.New, then call AttachStaking with the result.
func (d *Dispatcher) AttachStaking(s *staking.Staking) { d.staking = s }

// EmitStake implements callback.StakingTransport.
func (d *Dispatcher) EmitStake(owner addr.Address, validator addr.Valoper, amount uint64, vaultTxID uint64, stakingTxID uint64) error {
	d.mu.Lock()
	// Vault tx ids start at 1, so 0 marks a stake opened with no paired
	// vault tx; Ack then settles only the staking side.
	d.pending[stakingTxID] = correlation{kind: MsgStake, vaultTxID: txjournal.ID(vaultTxID), hasVaultTx: vaultTxID != 0}
	d.mu.Unlock()

	if d.hub == nil {
		return nil
	}
	return d.hub.Push(Envelope{
		Type: MsgStake, Owner: owner, Validator: validator, Amount: amount,
		VaultTxID: vaultTxID, StakingTxID: stakingTxID,
	})
}

// EmitUnstake implements callback.StakingTransport.
func (d *Dispatcher) EmitUnstake(owner addr.Address, validator addr.Valoper, amount uint64, stakingTxID uint64) error {
	d.mu.Lock()
	d.pending[stakingTxID] = correlation{kind: MsgUnstake}
	d.mu.Unlock()

	if d.hub == nil {
		return nil
	}
	return d.hub.Push(Envelope{
		Type: MsgUnstake, Owner: owner, Validator: validator, Amount: amount,
		StakingTxID: stakingTxID,
	})
}

// Ack applies one remote acknowledgment: commits or rolls back the
// correlated staking tx and, for stakes, the paired vault tx, in that
// order. Calls arrive single-threaded from the hub's dispatch loop, but
// Ack itself also accepts direct calls (from the RPC query surface or
// from tests), so the pending-map mutation is still guarded.
func (d *Dispatcher) Ack(stakingTxID uint64, accepted bool) error {
	d.mu.Lock()
	corr, ok := d.pending[stakingTxID]
	if ok {
		delete(d.pending, stakingTxID)
	}
	d.mu.Unlock()
	if !ok {
		return ErrUnknownCorrelation
	}

	id := txjournal.ID(stakingTxID)
	switch corr.kind {
	case MsgStake:
		if accepted {
			if err := d.staking.CommitStake(id); err != nil {
				return err
			}
		} else if err := d.staking.RollbackStake(id); err != nil {
			return err
		}
		if !corr.hasVaultTx || d.vault == nil {
			return nil
		}
		if accepted {
			return d.vault.CommitTx(d.staking.Address(), corr.vaultTxID)
		}
		return d.vault.RollbackTx(d.staking.Address(), corr.vaultTxID)
	case MsgUnstake:
		if accepted {
			return d.staking.CommitUnstake(id)
		}
		return d.staking.RollbackUnstake(id)
	default:
		return fmt.Errorf("transport: unknown correlation kind %d", corr.kind)
	}
}

// Pending reports how many tx ids are still awaiting an ack, for the
// query surface and for tests.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
