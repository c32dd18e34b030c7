// Package validatorset implements the Validator CRDT: a state-based
// register per valoper with add/remove events and tombstoning, queried
// as a height/time-stamped paginated active list.
//
// Grounded on snow/validators/manager.go's RWMutex-guarded registry and
// state/stakers.go's google/btree-ordered staker set for the ascending
// paginated listing.
package validatorset

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/pagination"
)

// Validator is a single valoper's CRDT record.
type Validator struct {
	Valoper     addr.Valoper
	PubKey      []byte
	StartHeight uint64
	StartTime   time.Time
	Active      bool
	Tombstoned  bool
}

func (v *Validator) Less(other btree.Item) bool {
	return v.Valoper.Less(other.(*Validator).Valoper)
}

// Set is the validator-set registry for one staking destination.
type Set struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// New returns an empty Set.
func New() *Set {
	return &Set{tree: btree.New(32)}
}

// AddValidators upserts records for the given valopers with their
// start_height/start_time. A validator already present and tombstoned
// cannot be revived — add is a no-op for that entry, since tombstoning
// is a terminal state.
func (s *Set) AddValidators(entries []Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range entries {
		v := entries[i]
		if existing := s.tree.Get(&v); existing != nil {
			prior := existing.(*Validator)
			if prior.Tombstoned {
				continue
			}
		}
		v.Active = true
		s.tree.ReplaceOrInsert(&v)
	}
}

// RemoveValidators marks the given valopers inactive. Unknown valopers
// are ignored (remove of a validator never added has no state to mark).
func (s *Set) RemoveValidators(valopers []addr.Valoper) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, val := range valopers {
		key := &Validator{Valoper: val}
		if existing := s.tree.Get(key); existing != nil {
			v := *existing.(*Validator)
			v.Active = false
			s.tree.ReplaceOrInsert(&v)
		}
	}
}

// Tombstone marks a valoper as permanently forbidden from future
// delegation — a distinct terminal state from a plain remove.
func (s *Set) Tombstone(val addr.Valoper) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := &Validator{Valoper: val}
	if existing := s.tree.Get(key); existing != nil {
		v := *existing.(*Validator)
		v.Active = false
		v.Tombstoned = true
		s.tree.ReplaceOrInsert(&v)
	}
}

// Get returns the record for val, and whether it was found at all.
func (s *Set) Get(val addr.Valoper) (Validator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := s.tree.Get(&Validator{Valoper: val})
	if existing == nil {
		return Validator{}, false
	}
	return *existing.(*Validator), true
}

// ListActive returns validators that are active and not tombstoned,
// ascending by valoper, paginated with an exclusive start-after cursor.
func (s *Set) ListActive(startAfter *addr.Valoper, limit int) []Validator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = pagination.Clamp(limit)
	out := make([]Validator, 0, limit)

	visit := func(i btree.Item) bool {
		v := i.(*Validator)
		if startAfter != nil && !startAfter.Less(v.Valoper) {
			return true
		}
		if v.Active && !v.Tombstoned {
			out = append(out, *v)
		}
		return len(out) < limit
	}
	s.tree.Ascend(visit)
	return out
}
