package staking

import (
	"sort"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/pagination"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/validatorset"
	"github.com/meshsec/provider-core/valuerange"
)

// Config returns external-staking's immutable configuration.
func (s *Staking) Config() Config { return s.cfg }

// StakeView answers the stake(user, validator) query.
type StakeView struct {
	Amount           valuerange.Range
	WithdrawnRewards uint64
	PendingUnbonds   []PendingUnbond
}

// StakeOf returns the per-(user, validator) stake view.
func (s *Staking) StakeOf(user addr.Address, validator addr.Valoper) (StakeView, error) {
	st, ok := s.stakes[stakeKey{user: user, validator: validator}]
	if !ok {
		return StakeView{}, ErrUnknownStake
	}
	return StakeView{
		Amount:           st.Amount,
		WithdrawnRewards: st.WithdrawnRewards,
		PendingUnbonds:   append([]PendingUnbond(nil), st.PendingUnbonds...),
	}, nil
}

// ValidatorStakeView pairs a validator with the user's stake there, for
// StakesByUser's listing.
type ValidatorStakeView struct {
	Validator addr.Valoper
	Stake     StakeView
}

// StakesByUser lists every validator a user has a stake with, ascending
// by validator, paginated with an exclusive start-after cursor.
func (s *Staking) StakesByUser(user addr.Address, startAfter *addr.Valoper, limit int) []ValidatorStakeView {
	limit = pagination.Clamp(limit)

	var rows []ValidatorStakeView
	for key, st := range s.stakes {
		if key.user != user {
			continue
		}
		rows = append(rows, ValidatorStakeView{
			Validator: key.validator,
			Stake: StakeView{
				Amount:           st.Amount,
				WithdrawnRewards: st.WithdrawnRewards,
				PendingUnbonds:   append([]PendingUnbond(nil), st.PendingUnbonds...),
			},
		})
	}
	sort.Slice(rows, func(i, k int) bool { return rows[i].Validator.Less(rows[k].Validator) })

	out := make([]ValidatorStakeView, 0, limit)
	for _, r := range rows {
		if startAfter != nil && !startAfter.Less(r.Validator) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// PendingTx returns one in-flight tx by id.
func (s *Staking) PendingTx(id txjournal.ID) (Tx, error) {
	tx, err := s.txs.Get(id)
	if err != nil {
		return Tx{}, ErrUnknownTx
	}
	return tx, nil
}

// AllPendingTxs lists every open external-staking tx, paginated by id.
func (s *Staking) AllPendingTxs(startAfter txjournal.ID, limit int) []Tx {
	return s.txs.All(startAfter, pagination.Clamp(limit))
}

// ListRemoteValidators forwards to the shared validator-set registry:
// the Validator CRDT is a registry-wide resource, not
// external-staking-owned state.
func (s *Staking) ListRemoteValidators(startAfter *addr.Valoper, limit int) []validatorset.Validator {
	return s.validators.ListActive(startAfter, limit)
}
