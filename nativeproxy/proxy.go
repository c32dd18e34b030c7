package nativeproxy

import (
	"time"

	"go.uber.org/zap"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/callback"
	"github.com/meshsec/provider-core/decimal"
	"github.com/meshsec/provider-core/metrics"
)

// VaultCollaborator is the typed handle Proxy uses to call back into its
// vault parent without importing the vault package, mirroring
// staking.VaultCollaborator's cycle-breaking shape.
type VaultCollaborator interface {
	callback.VaultReleaser
	callback.SlashSink
}

// Proxy is one native-staking proxy: a single-validator local-delegation
// collaborator the vault drives synchronously through
// callback.LocalStakingSink, with its own unbonding queue the vault never
// sees directly.
type Proxy struct {
	log *zap.Logger
	cfg Config
	m   metrics.Metrics

	vault VaultCollaborator

	delegated map[addr.Address]uint64
	total     uint64 // sum of delegated, for SetLocalDelegated
	pending   []PendingUnbond
}

// New returns a Proxy fixed to cfg.Validator. A nil m reports to
// metrics.Noop().
func New(cfg Config, vault VaultCollaborator, log *zap.Logger, m ...metrics.Metrics) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	reporter := metrics.Noop()
	if len(m) > 0 && m[0] != nil {
		reporter = m[0]
	}
	return &Proxy{
		log:       log.With(zap.String("component", "nativeproxy"), zap.Stringer("validator", cfg.Validator)),
		cfg:       cfg,
		m:         reporter,
		vault:     vault,
		delegated: make(map[addr.Address]uint64),
	}
}

// AttachVault binds the vault collaborator after construction, breaking
// the same construction cycle transport.Dispatcher.AttachStaking does:
// vault.New needs this Proxy as its callback.LocalStakingSink before the
// Proxy can hold a VaultCollaborator pointing back at that vault.
// Callers build New(cfg, nil, log), pass the proxy into vault.New, then
// call AttachVault with the result.
func (p *Proxy) AttachVault(vault VaultCollaborator) { p.vault = vault }

func (p *Proxy) Address() addr.Destination { return p.cfg.SelfAddress }
func (p *Proxy) MaxSlash() uint64          { return p.cfg.MaxSlashPPM }

// Delegate implements callback.LocalStakingSink. Local staking has no
// transport round-trip, so unlike staking.ReceiveVirtualStake this
// settles the bookkeeping in place rather than opening a tx journal
// entry — the original contract's instantiate-fixed validator means
// there is nothing here left to prepare against.
func (p *Proxy) Delegate(owner addr.Address, amount uint64, payload []byte) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	d, err := DecodeDelegatePayload(payload)
	if err != nil {
		return err
	}
	if d.Denom != p.cfg.Denom {
		return &ErrInvalidDenom{Expected: p.cfg.Denom, Got: d.Denom}
	}

	p.delegated[owner] += amount
	p.total += amount
	p.m.SetLocalDelegated(p.cfg.Validator.String(), p.total)
	p.log.Info("delegated", zap.Stringer("owner", owner), zap.Uint64("amount", amount))
	return nil
}

// Undelegate implements callback.LocalStakingSink. The unbonding delay
// is enforced here, not by the vault: the amount leaves p.delegated
// immediately and reappears as a PendingUnbond, mirroring
// staking.Stake.PendingUnbonds' shape so both sides of the vault mature
// claims the same way.
func (p *Proxy) Undelegate(owner addr.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	have := p.delegated[owner]
	if have < amount {
		return &ErrInsufficientDelegation{Have: have}
	}

	p.delegated[owner] = have - amount
	p.total -= amount
	p.m.SetLocalDelegated(p.cfg.Validator.String(), p.total)
	p.pending = append(p.pending, PendingUnbond{
		Owner:     owner,
		Amount:    amount,
		ReleaseAt: time.Now().Add(p.cfg.UnbondingPeriod),
	})
	p.log.Info("undelegated", zap.Stringer("owner", owner), zap.Uint64("amount", amount))
	return nil
}

// ReleaseUnbonded sweeps every matured claim as of now and hands the
// per-owner totals back to the vault via ReleaseLocalStake, the
// LocalStakingSink-side mirror of staking.WithdrawUnbonded's
// ReleaseCrossStake call. It returns the per-owner amounts released.
func (p *Proxy) ReleaseUnbonded(now time.Time) (map[addr.Address]uint64, error) {
	totals := make(map[addr.Address]uint64)
	remaining := p.pending[:0]
	for _, pu := range p.pending {
		if !pu.ReleaseAt.After(now) {
			totals[pu.Owner] += pu.Amount
		} else {
			remaining = append(remaining, pu)
		}
	}
	p.pending = remaining

	if p.vault != nil {
		for owner, amount := range totals {
			start := time.Now()
			err := p.vault.ReleaseLocalStake(p.Address(), owner, amount)
			p.m.AddCallbackLatency(time.Since(start))
			if err != nil {
				return nil, err
			}
		}
	}
	if len(totals) > 0 {
		p.log.Info("released unbonded delegation", zap.Int("owners", len(totals)))
	}
	return totals, nil
}

// HandleSlashing reduces every delegator's bookkeeping balance by ratio
// and propagates the event to the vault, mirroring staking.HandleSlashing
// for this proxy's single validator.
func (p *Proxy) HandleSlashing(ratioPPM uint64) error {
	ratio := decimal.Decimal(ratioPPM)

	for owner, amount := range p.delegated {
		if amount == 0 {
			continue
		}
		newAmount := ratio.Complement().MulFloor(amount)
		if newAmount == amount {
			continue
		}
		p.delegated[owner] = newAmount
		p.total -= amount - newAmount

		if p.vault != nil {
			if err := p.vault.AbsorbSlash(p.Address(), owner, amount, ratioPPM); err != nil {
				p.log.Error("vault rejected slash propagation", zap.Error(err), zap.Stringer("owner", owner))
			}
		}
	}

	p.m.SetLocalDelegated(p.cfg.Validator.String(), p.total)
	p.m.IncSlashEvents(p.cfg.Validator.String())
	p.log.Info("handled slashing", zap.Uint64("ratio_ppm", ratioPPM))
	return nil
}
