// Package transport is the concrete stand-in for the cross-chain wire a
// real deployment would use — something has to carry staking.Staking's
// EmitStake/EmitUnstake calls to a remote system and bring its ack
// back, and this module's demo and tests need something real to drive.
// It is also the one library package that imports both concrete
// vault.Vault and staking.Staking types (cmd/meshd imports them too, to
// wire them together): both of those packages only see each
// other through the callback-typed handles built for cycle-breaking,
// so the correlation between a staking tx id and the vault tx id
// opened for the same logical transfer has to live out here instead of
// inside either package.
//
// Grounded on DevMarc16-Quantum-Proof-Blockchain's chain/node/p2p.go
// (typed message envelope, websocket.Conn-per-peer registry guarded by a
// mutex, ReadJSON/WriteJSON framing) for the push side, and
// vms/platformvm/vm.go's rpc.NewServer()/RegisterService wiring for the
// query side.
package transport

import "github.com/meshsec/provider-core/addr"

// MessageType tags what an Envelope carries.
type MessageType uint8

const (
	// MsgStake is pushed to the remote system when staking accepts a
	// virtual stake and needs it forwarded.
	MsgStake MessageType = iota
	// MsgUnstake is pushed to the remote system when staking opens an
	// unstake.
	MsgUnstake
	// MsgAck is read back from the remote system: it reports whether
	// the staking tx named by StakingTxID landed, and drives commit or
	// rollback on both staking and (for stakes) the vault.
	MsgAck
)

// Envelope is the wire shape exchanged with the remote system over the
// websocket hub. Only the fields relevant to the message's Type are
// populated; the rest are zero.
type Envelope struct {
	Type MessageType `json:"type"`

	Owner     addr.Address `json:"owner,omitempty"`
	Validator addr.Valoper `json:"validator,omitempty"`
	Amount    uint64       `json:"amount,omitempty"`

	VaultTxID   uint64 `json:"vault_tx_id,omitempty"`
	StakingTxID uint64 `json:"staking_tx_id"`

	Accepted bool `json:"accepted,omitempty"`
}
