package nativeproxy

import "github.com/meshsec/provider-core/addr"

// Config returns the proxy's immutable configuration, mirroring the
// original contract's config() query.
func (p *Proxy) Config() Config { return p.cfg }

// DelegatedBy returns the owner's currently delegated (bonded) amount,
// excluding anything already moved to the unbonding queue.
func (p *Proxy) DelegatedBy(owner addr.Address) uint64 {
	return p.delegated[owner]
}

// Unbonding returns every open claim for an owner, mature or pending,
// mirroring the original contract's unbonding(account) query.
func (p *Proxy) Unbonding(owner addr.Address) []PendingUnbond {
	var out []PendingUnbond
	for _, pu := range p.pending {
		if pu.Owner == owner {
			out = append(out, pu)
		}
	}
	return out
}
