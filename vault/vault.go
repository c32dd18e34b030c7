// Package vault implements the provider's collateral accounting:
// collateral bonding, the lien table keyed by (user, destination), user
// aggregates (max_lien, total_slashable), the collateral rule, and
// stake/unstake dispatch to local and remote destinations.
//
// Grounded on txs/executor/standard_tx_executor.go's one-method-per-
// command-over-shared-state shape, and the retrieved pack's Cosmos SDK
// x/collateral keeper files for the bonded-collateral + per-participant
// map + unbonding-queue shape.
package vault

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/callback"
	"github.com/meshsec/provider-core/decimal"
	"github.com/meshsec/provider-core/metrics"
	"github.com/meshsec/provider-core/pagination"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/valuerange"
)

type lienKey struct {
	user addr.Address
	dest addr.Destination
}

// Vault is the root of collateral truth. Every exported method assumes
// its caller serializes calls — there is no internal locking, matching
// the platform's single-writer-per-entry-point model.
type Vault struct {
	log *zap.Logger
	cfg Config
	m   metrics.Metrics

	local        callback.LocalStakingSink
	localInfo    LocalStaking
	destinations map[addr.Destination]callback.Destination

	users map[addr.Address]*UserInfo
	liens map[lienKey]*Lien

	totalCollateral uint64 // sum of every user's Collateral, for SetBondedCollateral

	txs *txjournal.Journal[Tx]
}

// New returns a Vault configured with the given collateral denom and
// local staking collaborator. The collaborator's identity and slash cap
// are captured once, up front, into localInfo, rather than re-derived on
// every local stake. A nil m reports to metrics.Noop(), the same
// nil-safety convention New already applies to log.
func New(cfg Config, local callback.LocalStakingSink, log *zap.Logger, m ...metrics.Metrics) *Vault {
	if log == nil {
		log = zap.NewNop()
	}
	reporter := metrics.Noop()
	if len(m) > 0 && m[0] != nil {
		reporter = m[0]
	}
	var localInfo LocalStaking
	if local != nil {
		localInfo = LocalStaking{ContractAddr: local.Address(), MaxSlash: decimal.Decimal(local.MaxSlash())}
	}
	return &Vault{
		log:          log.With(zap.String("component", "vault")),
		cfg:          cfg,
		m:            reporter,
		local:        local,
		localInfo:    localInfo,
		destinations: make(map[addr.Destination]callback.Destination),
		users:        make(map[addr.Address]*UserInfo),
		liens:        make(map[lienKey]*Lien),
		txs:          txjournal.New[Tx](),
	}
}

// RegisterDestination makes a remote staking destination reachable via
// StakeRemote. Idempotent re-registration overwrites the handle.
func (v *Vault) RegisterDestination(d callback.Destination) {
	v.destinations[d.Address()] = d
}

func (v *Vault) getOrCreateUser(user addr.Address) *UserInfo {
	u, ok := v.users[user]
	if !ok {
		u = &UserInfo{
			MaxLien:        valuerange.New(0),
			TotalSlashable: valuerange.New(0),
		}
		v.users[user] = u
	}
	return u
}

func (v *Vault) getUser(user addr.Address) (*UserInfo, error) {
	u, ok := v.users[user]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u, nil
}

// recomputeAggregates rebuilds a user's MaxLien and TotalSlashable ranges
// from scratch by scanning their liens. Used on shrink paths (release,
// slashing): a lien shrinking may reveal a lower true maximum across
// destinations, which the incremental max-against-the-updated-lien
// tracking used on growth paths (see StakeLocal/StakeRemote/CommitTx)
// cannot discover on its own.
func (v *Vault) recomputeAggregates(user addr.Address) {
	u := v.users[user]
	if u == nil {
		return
	}
	var maxLo, maxHi, slashLo, slashHi uint64
	for key, lien := range v.liens {
		if key.user != user {
			continue
		}
		if lo := lien.Amount.Lo(); lo > maxLo {
			maxLo = lo
		}
		if hi := lien.Amount.Hi(); hi > maxHi {
			maxHi = hi
		}
		slashLo += lien.Slashable.MulFloor(lien.Amount.Lo())
		slashHi += lien.Slashable.MulFloor(lien.Amount.Hi())
	}
	u.MaxLien = rangeFrom(maxLo, maxHi)
	u.TotalSlashable = rangeFrom(slashLo, slashHi)
}

// rangeFrom builds a Range directly from known lo/hi, for callers that
// derive both bounds outright rather than via relative
// prepare/commit/rollback deltas (recomputeAggregates,
// testCollateralRule, Account).
func rangeFrom(lo, hi uint64) valuerange.Range {
	r := valuerange.New(lo)
	if hi > lo {
		r, _ = r.PrepareAdd(hi - lo)
	}
	return r
}

// Bond increases a user's bonded collateral. Pure-synchronous, no tx.
func (v *Vault) Bond(user addr.Address, amount uint64, denom string) error {
	if denom != v.cfg.CollateralDenom {
		return &ErrInvalidDenom{Expected: v.cfg.CollateralDenom, Got: denom}
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	u := v.getOrCreateUser(user)
	u.Collateral += amount
	v.totalCollateral += amount
	v.m.SetBondedCollateral(v.totalCollateral)
	v.log.Info("bonded collateral", zap.Stringer("user", user), zap.Uint64("amount", amount))
	return nil
}

// Unbond decreases a user's bonded collateral and returns the amount to
// release, provided it does not exceed free collateral.
func (v *Vault) Unbond(user addr.Address, amount uint64) (uint64, error) {
	u, err := v.getUser(user)
	if err != nil {
		return 0, err
	}
	free := u.FreeCollateral()
	if amount > free {
		return 0, &ErrClaimsLocked{Free: free}
	}
	u.Collateral -= amount
	v.totalCollateral -= amount
	v.m.SetBondedCollateral(v.totalCollateral)
	v.log.Info("unbonded collateral", zap.Stringer("user", user), zap.Uint64("amount", amount))
	return amount, nil
}

// StakeLocal forwards tokens to the local staking collaborator
// synchronously: local staking never goes through the asynchronous
// transport, so the lien is committed immediately.
func (v *Vault) StakeLocal(user addr.Address, amount uint64, payload []byte) error {
	if v.local == nil {
		return fmt.Errorf("vault: no local staking collaborator configured")
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	u, err := v.getUser(user)
	if err != nil {
		return err
	}

	dest := v.localInfo.ContractAddr
	key := lienKey{user: user, dest: dest}
	lien, ok := v.liens[key]
	if !ok {
		lien = &Lien{Amount: valuerange.New(0), Slashable: v.localInfo.MaxSlash}
	}

	prospectiveLien, err := lien.Amount.PrepareAdd(amount)
	if err != nil {
		return err
	}
	fits, maxLienCopy, totalSlashCopy := v.testCollateralRule(u, prospectiveLien.Hi(), lien.Slashable.MulFloor(amount))
	if !fits {
		return &ErrInsufficientBalance{Collateral: u.Collateral, Required: maxU64(maxLienCopy.Hi(), totalSlashCopy.Hi())}
	}

	start := time.Now()
	err = v.local.Delegate(user, amount, payload)
	v.m.AddCallbackLatency(time.Since(start))
	if err != nil {
		return err
	}
	if !ok {
		v.m.SetOpenLiens(len(v.liens) + 1)
	}
	v.liens[key] = lien

	lien.Amount = prospectiveLien.CommitAdd(amount)

	// max_lien is the largest lien across all destinations, not their
	// sum: fold this destination's newly-committed amount into the
	// running max rather than adding it on top.
	u.MaxLien = valuerange.Max(u.MaxLien, lien.Amount)

	slashDelta := lien.Slashable.MulFloor(amount)
	totalSlashPrepared, err := u.TotalSlashable.PrepareAdd(slashDelta)
	if err != nil {
		return err
	}
	u.TotalSlashable = totalSlashPrepared.CommitAdd(slashDelta)

	v.log.Info("staked locally", zap.Stringer("user", user), zap.Uint64("amount", amount))
	return nil
}

// testCollateralRule reports whether a destination's lien reaching
// prospectiveLienHi, plus slashDelta added to total_slashable, would
// still satisfy the collateral rule, without mutating any stored state.
// max_lien only ever tracks the largest lien across a user's
// destinations, so the prospective max_lien here is
// max(u.MaxLien.Hi(), prospectiveLienHi) rather than a sum: growing one
// destination's lien only raises the user's exposure if it becomes the
// new largest. total_slashable, in contrast, genuinely sums every
// destination's contribution, so it keeps its additive test.
func (v *Vault) testCollateralRule(u *UserInfo, prospectiveLienHi uint64, slashDelta uint64) (bool, valuerange.Range, valuerange.Range) {
	maxLienHi := u.MaxLien.Hi()
	if prospectiveLienHi > maxLienHi {
		maxLienHi = prospectiveLienHi
	}
	maxLien := rangeFrom(u.MaxLien.Lo(), maxLienHi)

	totalSlashable, err := u.TotalSlashable.PrepareAdd(slashDelta)
	if err != nil {
		return false, maxLien, totalSlashable
	}
	prospective := UserInfo{Collateral: u.Collateral, MaxLien: maxLien, TotalSlashable: totalSlashable}
	return prospective.CollateralRule(), maxLien, totalSlashable
}

// StakeRemote opens a Stake tx reserving optimistic lien capacity on the
// given destination and forwards a virtual stake to it. Returns the new
// tx's id.
func (v *Vault) StakeRemote(user addr.Address, destination addr.Destination, amount uint64, payload []byte) (txjournal.ID, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	u, err := v.getUser(user)
	if err != nil {
		return 0, err
	}
	dest, ok := v.destinations[destination]
	if !ok {
		return 0, fmt.Errorf("vault: unknown destination %s", destination)
	}

	key := lienKey{user: user, dest: destination}
	lien, exists := v.liens[key]
	var slashable decimal.Decimal
	if exists {
		slashable = lien.Slashable
	} else {
		slashable = decimal.Decimal(dest.MaxSlash())
	}

	// pending_stake: this stake plus every other currently open Stake tx
	// for the user, regardless of destination — the worst case if every
	// in-flight stake landed on a single destination at once. Used only
	// as a conservative pre-check; it is never itself written to any
	// destination's lien.
	pendingStake := amount
	for _, tx := range v.txs.ByUser(user.String()) {
		if tx.Kind == TxStake {
			pendingStake += tx.Amount
		}
	}

	fits, maxLienCopy, totalSlashCopy := v.testCollateralRule(u, pendingStake, slashable.MulFloor(pendingStake))
	if !fits {
		return 0, &ErrInsufficientBalance{Collateral: u.Collateral, Required: maxU64(maxLienCopy.Hi(), totalSlashCopy.Hi())}
	}

	if !exists {
		lien = &Lien{Amount: valuerange.New(0), Slashable: slashable}
		v.liens[key] = lien
		v.m.SetOpenLiens(len(v.liens))
	}
	newLienAmount, err := lien.Amount.PrepareAdd(amount)
	if err != nil {
		return 0, err
	}
	lien.Amount = newLienAmount

	// The real state only reserves this op's own amount at prepare time
	// (hi grows by amount, not pending_stake); pending_stake was only
	// the conservative test above. max_lien folds in this destination's
	// own new hi, taking the max rather than adding it on top.
	u.MaxLien = valuerange.Max(u.MaxLien, lien.Amount)

	slashDelta := slashable.MulFloor(amount)
	totalSlashPrepared, err := u.TotalSlashable.PrepareAdd(slashDelta)
	if err != nil {
		return 0, err
	}
	u.TotalSlashable = totalSlashPrepared

	id := v.txs.Open(func(id txjournal.ID) Tx {
		return Tx{ID: id, Kind: TxStake, Owner: user, Destination: destination, Amount: amount, Slashable: slashable}
	})
	v.m.IncTxOpened()

	start := time.Now()
	err = dest.ReceiveVirtualStake(user, amount, uint64(id), payload)
	v.m.AddCallbackLatency(time.Since(start))
	if err != nil {
		// The remote destination rejected the virtual stake outright
		// (not an ack/timeout, an immediate synchronous failure): treat
		// this exactly like a caller-initiated rollback.
		_ = v.rollbackStakeTx(destination, id)
		return 0, err
	}

	v.log.Info("opened remote stake tx",
		zap.Stringer("user", user), zap.Stringer("destination", destination),
		zap.Uint64("amount", amount), zap.Uint64("tx_id", uint64(id)))
	return id, nil
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
