package nativeproxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meshsec/provider-core/addr"
)

func mkUser(b byte) addr.Address { return addr.Address{0: b} }
func mkValoper(b byte) addr.Valoper {
	var v addr.Valoper
	v[0] = b
	return v
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

// fakeVault is a VaultCollaborator test double, mirroring staking's own
// fakeVault so both destinations are exercised the same way.
type fakeVault struct {
	released map[addr.Address]uint64
	slashed  []uint64
	failNext bool
}

func newFakeVault() *fakeVault {
	return &fakeVault{released: make(map[addr.Address]uint64)}
}

func (f *fakeVault) ReleaseCrossStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	return f.ReleaseLocalStake(caller, owner, amount)
}
func (f *fakeVault) ReleaseLocalStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	if f.failNext {
		return &fakeErr{"vault refused release"}
	}
	f.released[owner] += amount
	return nil
}
func (f *fakeVault) AbsorbSlash(destination addr.Destination, owner addr.Address, lienAmountBefore uint64, ratioPPM uint64) error {
	f.slashed = append(f.slashed, lienAmountBefore)
	return nil
}

func newTestProxy(vault VaultCollaborator, validator addr.Valoper, unbonding time.Duration) *Proxy {
	cfg := Config{Denom: "umesh", Validator: validator, MaxSlashPPM: 1_000_000, UnbondingPeriod: unbonding}
	return New(cfg, vault, nil)
}

func TestDelegateAccumulatesPerOwner(t *testing.T) {
	p := newTestProxy(newFakeVault(), mkValoper(1), time.Hour)
	user := mkUser(1)

	require.NoError(t, p.Delegate(user, 100, EncodeDelegatePayload("umesh")))
	require.NoError(t, p.Delegate(user, 50, EncodeDelegatePayload("umesh")))

	require.Equal(t, uint64(150), p.DelegatedBy(user))
}

func TestDelegateRejectsWrongDenom(t *testing.T) {
	p := newTestProxy(newFakeVault(), mkValoper(2), time.Hour)
	err := p.Delegate(mkUser(1), 100, EncodeDelegatePayload("uatom"))
	var denomErr *ErrInvalidDenom
	require.ErrorAs(t, err, &denomErr)
}

func TestDelegateRejectsZeroAmount(t *testing.T) {
	p := newTestProxy(newFakeVault(), mkValoper(3), time.Hour)
	err := p.Delegate(mkUser(1), 0, EncodeDelegatePayload("umesh"))
	require.ErrorIs(t, err, ErrZeroAmount)
}

func TestUndelegateRejectsBeyondDelegation(t *testing.T) {
	p := newTestProxy(newFakeVault(), mkValoper(4), time.Hour)
	user := mkUser(1)
	require.NoError(t, p.Delegate(user, 50, EncodeDelegatePayload("umesh")))

	err := p.Undelegate(user, 51)
	var insufficient *ErrInsufficientDelegation
	require.ErrorAs(t, err, &insufficient)
}

func TestUndelegateQueuesPendingUnbondUntilMature(t *testing.T) {
	vault := newFakeVault()
	p := newTestProxy(vault, mkValoper(5), time.Hour)
	user := mkUser(1)
	require.NoError(t, p.Delegate(user, 100, EncodeDelegatePayload("umesh")))

	require.NoError(t, p.Undelegate(user, 40))
	require.Equal(t, uint64(60), p.DelegatedBy(user))
	require.Len(t, p.Unbonding(user), 1)

	// Not mature yet: releasing now claims nothing and leaves the claim queued.
	released, err := p.ReleaseUnbonded(time.Now())
	require.NoError(t, err)
	require.Empty(t, released)
	require.Len(t, p.Unbonding(user), 1)
	require.Equal(t, uint64(0), vault.released[user])

	// Advance past the unbonding period: the claim matures and is released.
	released, err = p.ReleaseUnbonded(time.Now().Add(2 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, uint64(40), released[user])
	require.Equal(t, uint64(40), vault.released[user])
	require.Empty(t, p.Unbonding(user))

	// A second sweep with nothing matured releases nothing further.
	released, err = p.ReleaseUnbonded(time.Now().Add(3 * time.Hour))
	require.NoError(t, err)
	require.Empty(t, released)
	require.Equal(t, uint64(40), vault.released[user])
}

func TestReleaseUnbondedStopsOnVaultFailure(t *testing.T) {
	vault := newFakeVault()
	p := newTestProxy(vault, mkValoper(6), time.Minute)
	user := mkUser(1)
	require.NoError(t, p.Delegate(user, 100, EncodeDelegatePayload("umesh")))
	require.NoError(t, p.Undelegate(user, 30))

	vault.failNext = true
	_, err := p.ReleaseUnbonded(time.Now().Add(time.Hour))
	require.Error(t, err)
}

func TestHandleSlashingReducesDelegationAndPropagatesToVault(t *testing.T) {
	vault := newFakeVault()
	p := newTestProxy(vault, mkValoper(7), time.Hour)
	user := mkUser(1)
	require.NoError(t, p.Delegate(user, 100, EncodeDelegatePayload("umesh")))

	require.NoError(t, p.HandleSlashing(100_000)) // 10%

	require.Equal(t, uint64(90), p.DelegatedBy(user))
	require.Equal(t, []uint64{100}, vault.slashed)
}

func TestHandleSlashingSkipsZeroDelegations(t *testing.T) {
	p := newTestProxy(newFakeVault(), mkValoper(8), time.Hour)
	require.NoError(t, p.HandleSlashing(500_000))
}
