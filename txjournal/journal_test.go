package txjournal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	id     ID
	user   string
	amount uint64
}

func (f fakeRow) User() string { return f.user }

func open(j *Journal[fakeRow], user string, amount uint64) ID {
	return j.Open(func(id ID) fakeRow {
		return fakeRow{id: id, user: user, amount: amount}
	})
}

func TestOpenGetRemove(t *testing.T) {
	j := New[fakeRow]()

	id := open(j, "alice", 10)
	require.Equal(t, 1, j.Len())

	row, err := j.Get(id)
	require.NoError(t, err)
	require.Equal(t, uint64(10), row.amount)
	require.Equal(t, id, row.id)

	require.NoError(t, j.Remove(id))
	require.Equal(t, 0, j.Len())

	_, err = j.Get(id)
	require.ErrorIs(t, err, ErrUnknownTx)
}

func TestRemoveUnknownOrAlreadyResolvedFails(t *testing.T) {
	j := New[fakeRow]()
	require.ErrorIs(t, j.Remove(ID(999)), ErrUnknownTx)

	id := open(j, "bob", 1)
	require.NoError(t, j.Remove(id))
	// Second rollback/commit of the same id must fail, never noop.
	require.ErrorIs(t, j.Remove(id), ErrUnknownTx)
}

func TestMonotonicIDs(t *testing.T) {
	j := New[fakeRow]()
	id1 := open(j, "a", 0)
	id2 := open(j, "a", 0)
	require.Less(t, uint64(id1), uint64(id2))
}

func TestByUser(t *testing.T) {
	j := New[fakeRow]()
	open(j, "alice", 1)
	open(j, "bob", 2)
	id3 := open(j, "alice", 3)

	rows := j.ByUser("alice")
	require.Len(t, rows, 2)
	require.Equal(t, uint64(1), rows[0].amount)
	require.Equal(t, uint64(3), rows[1].amount)

	require.NoError(t, j.Remove(id3))
	require.Len(t, j.ByUser("alice"), 1)
}

func TestAllPagination(t *testing.T) {
	j := New[fakeRow]()
	var ids []ID
	for i := 0; i < 5; i++ {
		ids = append(ids, open(j, "x", uint64(i)))
	}

	page1 := j.All(0, 2)
	require.Len(t, page1, 2)
	require.Equal(t, uint64(0), page1[0].amount)
	require.Equal(t, uint64(1), page1[1].amount)

	page2 := j.All(ids[1], 2)
	require.Len(t, page2, 2)
	require.Equal(t, uint64(2), page2[0].amount)
	require.Equal(t, uint64(3), page2[1].amount)
}

func TestConcurrentPrepareProducesIndependentRows(t *testing.T) {
	// Boundary case: concurrent stake_remote by two users on the same
	// destination produce independent tx rows.
	j := New[fakeRow]()
	idA := open(j, "alice", 100)
	idB := open(j, "bob", 50)
	require.NotEqual(t, idA, idB)
	require.Equal(t, 2, j.Len())
}
