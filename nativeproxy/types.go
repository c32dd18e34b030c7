// Package nativeproxy implements the native-staking proxy: a
// per-validator local-delegation collaborator the vault talks to through
// callback.LocalStakingSink, queueing its own unbonding claims the same
// shape as staking.Stake.PendingUnbonds and releasing them back to the
// vault once mature.
//
// Grounded on original_source/contracts/native-staking-proxy/src/contract.rs
// (a per-validator CosmWasm contract implementing LocalStakingApi's
// receive_stake/max_slash, with unstake/process_unbonded left as "todo" —
// this package is the from-scratch completion of that shape, in Go).
package nativeproxy

import (
	"time"

	"github.com/meshsec/provider-core/addr"
)

// Config is the proxy's immutable init-time configuration: one Proxy
// instance always targets exactly one validator, mirroring the original
// contract's instantiate-time-fixed validator.
type Config struct {
	Denom           string
	Validator       addr.Valoper
	SelfAddress     addr.Destination
	UnbondingPeriod time.Duration
	MaxSlashPPM     uint64
}

// PendingUnbond is one matured-or-maturing undelegation slice, held
// until ReleaseUnbonded claims it back to the vault.
type PendingUnbond struct {
	Owner     addr.Address
	Amount    uint64
	ReleaseAt time.Time
}
