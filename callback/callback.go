// Package callback defines the bounded surface transport and destination
// collaborators call back into, and the interfaces the vault uses to
// reach a destination. Everything here is an interface: cyclic
// references between vault, staking, and per-user proxies are broken
// with typed handles (an address plus the expected callback shape)
// rather than compile-time struct cycles.
package callback

import "github.com/meshsec/provider-core/addr"

// Destination is what the vault knows about a remote staking system: its
// identity, its slashable-fraction cap, and the entry point the vault
// forwards virtual stakes to.
type Destination interface {
	Address() addr.Destination

	// MaxSlash is the maximum slashable fraction this destination can
	// ever impose. The vault does not cache it at registration: it calls
	// MaxSlash each time a user opens their first lien with this
	// destination and uses the result as that lien's slashable fraction.
	MaxSlash() uint64 // parts-per-million, see decimal.Denominator

	// ReceiveVirtualStake is called by the vault after it has reserved
	// optimistic lien capacity; the destination opens its own tx and
	// emits the transport message.
	ReceiveVirtualStake(owner addr.Address, amount uint64, txID uint64, payload []byte) error
}

// LocalStakingSink is the opaque local delegation collaborator: it
// accepts delegate/undelegate commands synchronously (local staking
// never goes through the asynchronous transport).
type LocalStakingSink interface {
	Address() addr.Destination
	MaxSlash() uint64

	Delegate(owner addr.Address, amount uint64, payload []byte) error
	Undelegate(owner addr.Address, amount uint64) error
}

// VaultReleaser is the reply channel a destination uses to tell the
// vault an unstake has cleared and its lien should shrink. Both vault's
// ReleaseCrossStake and ReleaseLocalStake satisfy this from the
// destination's point of view.
type VaultReleaser interface {
	ReleaseCrossStake(caller addr.Destination, owner addr.Address, amount uint64) error
	ReleaseLocalStake(caller addr.Destination, owner addr.Address, amount uint64) error
}

// SlashSink is how a destination propagates a slashing event back to the
// vault: proportional reduction of the owner's liens and collateral.
type SlashSink interface {
	AbsorbSlash(destination addr.Destination, owner addr.Address, lienAmountBefore uint64, ratioPPM uint64) error
}

// StakingTransport is external-staking's outbound hook into the
// transport. Unlike the vault, whose ReceiveVirtualStake can only
// return an error to its synchronous in-process caller, external-
// staking keeps its own tx id distinct from the vault's — so every
// virtual stake/unstake it accepts is mirrored here, letting the
// transport correlate both ids and later drive both sides' commit or
// rollback once it decides the message is acknowledged.
type StakingTransport interface {
	EmitStake(owner addr.Address, validator addr.Valoper, amount uint64, vaultTxID uint64, stakingTxID uint64) error
	EmitUnstake(owner addr.Address, validator addr.Valoper, amount uint64, stakingTxID uint64) error
}
