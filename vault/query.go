package vault

import (
	"sort"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/pagination"
	"github.com/meshsec/provider-core/txjournal"
	"github.com/meshsec/provider-core/valuerange"
)

// AccountView answers the account(user) query.
type AccountView struct {
	Denom  string
	Bonded uint64
	Free   valuerange.Range
}

// Account returns the bonded/free view of a user's collateral.
func (v *Vault) Account(user addr.Address) (AccountView, error) {
	u, err := v.getUser(user)
	if err != nil {
		return AccountView{}, err
	}
	encumberedLo := maxU64(u.MaxLien.Lo(), u.TotalSlashable.Lo())
	encumberedHi := maxU64(u.MaxLien.Hi(), u.TotalSlashable.Hi())
	free := rangeFrom(subFloor(u.Collateral, encumberedHi), subFloor(u.Collateral, encumberedLo))
	return AccountView{Denom: v.cfg.CollateralDenom, Bonded: u.Collateral, Free: free}, nil
}

func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// ClaimView answers one row of the account_claims(user, page) query.
type ClaimView struct {
	Destination addr.Destination
	Amount      valuerange.Range
}

// AccountClaims lists a user's per-destination liens, paginated and
// ordered by destination.
func (v *Vault) AccountClaims(user addr.Address, startAfter *addr.Destination, limit int) []ClaimView {
	limit = pagination.Clamp(limit)

	type row struct {
		dest addr.Destination
		lien *Lien
	}
	var rows []row
	for key, lien := range v.liens {
		if key.user != user {
			continue
		}
		rows = append(rows, row{dest: key.dest, lien: lien})
	}
	sort.Slice(rows, func(i, k int) bool { return lessDest(rows[i].dest, rows[k].dest) })

	out := make([]ClaimView, 0, limit)
	for _, r := range rows {
		if startAfter != nil && !lessDest(*startAfter, r.dest) {
			continue
		}
		out = append(out, ClaimView{Destination: r.dest, Amount: r.lien.Amount})
		if len(out) == limit {
			break
		}
	}
	return out
}

func lessDest(a, b addr.Destination) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// AccountDetails answers the account_details(user) query.
type AccountDetails struct {
	MaxLien        valuerange.Range
	TotalSlashable valuerange.Range
	Bonded         uint64
	Free           valuerange.Range
}

// AccountDetails returns the full aggregate view of a user's account.
func (v *Vault) AccountDetails(user addr.Address) (AccountDetails, error) {
	acc, err := v.Account(user)
	if err != nil {
		return AccountDetails{}, err
	}
	u := v.users[user]
	return AccountDetails{
		MaxLien:        u.MaxLien,
		TotalSlashable: u.TotalSlashable,
		Bonded:         acc.Bonded,
		Free:           acc.Free,
	}, nil
}

// AllAccounts lists every known user, optionally filtered to those with
// nonzero collateral, paginated and ordered by address.
func (v *Vault) AllAccounts(withCollateralOnly bool, startAfter *addr.Address, limit int) []addr.Address {
	limit = pagination.Clamp(limit)

	addrs := make([]addr.Address, 0, len(v.users))
	for a, u := range v.users {
		if withCollateralOnly && u.Collateral == 0 {
			continue
		}
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, k int) bool { return addrs[i].Less(addrs[k]) })

	out := make([]addr.Address, 0, limit)
	for _, a := range addrs {
		if startAfter != nil && !startAfter.Less(a) {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

// AllPendingTxs lists every open vault tx, paginated by tx id.
func (v *Vault) AllPendingTxs(startAfter txjournal.ID, limit int) []Tx {
	return v.txs.All(startAfter, pagination.Clamp(limit))
}

// Config returns the vault's immutable configuration.
func (v *Vault) Config() Config {
	return v.cfg
}
