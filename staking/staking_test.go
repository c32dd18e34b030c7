package staking

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/validatorset"
)

func mkUser(b byte) addr.Address { return addr.Address{0: b} }
func mkValoper(b byte) addr.Valoper {
	var v addr.Valoper
	v[0] = b
	return v
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

// fakeVault is a VaultCollaborator test double recording every release
// and slash-absorption call it receives.
type fakeVault struct {
	released map[addr.Address]uint64
	slashed  []uint64
	failNext bool
}

func newFakeVault() *fakeVault {
	return &fakeVault{released: make(map[addr.Address]uint64)}
}

func (f *fakeVault) ReleaseCrossStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	if f.failNext {
		return &fakeErr{"vault refused release"}
	}
	f.released[owner] += amount
	return nil
}
func (f *fakeVault) ReleaseLocalStake(caller addr.Destination, owner addr.Address, amount uint64) error {
	return f.ReleaseCrossStake(caller, owner, amount)
}
func (f *fakeVault) AbsorbSlash(destination addr.Destination, owner addr.Address, lienAmountBefore uint64, ratioPPM uint64) error {
	f.slashed = append(f.slashed, lienAmountBefore)
	return nil
}

// fakeTransport is a callback.StakingTransport test double: by default it
// never actually acks (tests drive commit/rollback directly), and can be
// told to reject the emission outright.
type fakeTransport struct {
	reject bool
	stakes []uint64
}

func (f *fakeTransport) EmitStake(owner addr.Address, validator addr.Valoper, amount uint64, vaultTxID, stakingTxID uint64) error {
	if f.reject {
		return &fakeErr{"transport refused stake"}
	}
	f.stakes = append(f.stakes, amount)
	return nil
}
func (f *fakeTransport) EmitUnstake(owner addr.Address, validator addr.Valoper, amount uint64, stakingTxID uint64) error {
	if f.reject {
		return &fakeErr{"transport refused unstake"}
	}
	return nil
}

func newTestStaking(vault VaultCollaborator, validator addr.Valoper) *Staking {
	vs := validatorset.New()
	vs.AddValidators([]validatorset.Validator{{Valoper: validator}})
	cfg := Config{StakingDenom: "umesh", RewardsDenom: "umesh", MaxSlashPPM: 1_000_000}
	return New(cfg, vs, vault, nil, nil)
}

func openAndCommitStake(t *testing.T, s *Staking, user addr.Address, validator addr.Valoper, amount uint64) {
	t.Helper()
	err := s.ReceiveVirtualStake(user, amount, 0, EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)
	pending := s.AllPendingTxs(0, 0)
	require.NotEmpty(t, pending)
	var txID = pending[len(pending)-1].ID
	require.NoError(t, s.CommitStake(txID))
}

// Reward distribution: two stakers a:100,
// b:300 on one validator; distributing 400 rewards and withdrawing must
// give a exactly 100 and b exactly 300.
func TestScenarioRewardDistribution(t *testing.T) {
	validator := mkValoper(1)
	s := newTestStaking(newFakeVault(), validator)
	a, b := mkUser(1), mkUser(2)

	openAndCommitStake(t, s, a, validator, 100)
	openAndCommitStake(t, s, b, validator, 300)

	require.NoError(t, s.DistributeRewards(validator, 400))

	rewardA, err := s.WithdrawRewards(a, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(100), rewardA)

	rewardB, err := s.WithdrawRewards(b, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(300), rewardB)

	// Withdrawing again with no new distribution pays nothing further.
	again, err := s.WithdrawRewards(a, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(0), again)
}

// A stake opened after a distribution must not retroactively claim the
// rewards distributed before it existed: points-alignment is what keeps
// the later staker from diluting the earlier one's already-accrued share.
func TestPointsAlignmentIsolatesLateStaker(t *testing.T) {
	validator := mkValoper(2)
	s := newTestStaking(newFakeVault(), validator)
	early, late := mkUser(10), mkUser(11)

	openAndCommitStake(t, s, early, validator, 100)
	require.NoError(t, s.DistributeRewards(validator, 100)) // pps now worth 1:1 on the 100 staked so far

	openAndCommitStake(t, s, late, validator, 100)

	rewardLate, err := s.WithdrawRewards(late, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(0), rewardLate, "late staker must not claim rewards distributed before it joined")

	rewardEarly, err := s.WithdrawRewards(early, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(100), rewardEarly)
}

func TestReceiveVirtualStakeRejectsUnknownValidator(t *testing.T) {
	s := newTestStaking(newFakeVault(), mkValoper(3))
	err := s.ReceiveVirtualStake(mkUser(1), 50, 0, EncodeStakePayload(mkValoper(99), "umesh"))
	require.ErrorIs(t, err, ErrUnknownValidator)
}

func TestReceiveVirtualStakeRejectsWrongDenom(t *testing.T) {
	validator := mkValoper(4)
	s := newTestStaking(newFakeVault(), validator)
	err := s.ReceiveVirtualStake(mkUser(1), 50, 0, EncodeStakePayload(validator, "uatom"))
	var denomErr *ErrInvalidDenom
	require.ErrorAs(t, err, &denomErr)
}

func TestReceiveVirtualStakeRollsBackOnTransportRejection(t *testing.T) {
	validator := mkValoper(5)
	vs := validatorset.New()
	vs.AddValidators([]validatorset.Validator{{Valoper: validator}})
	transport := &fakeTransport{reject: true}
	s := New(Config{StakingDenom: "umesh"}, vs, newFakeVault(), transport, nil)

	err := s.ReceiveVirtualStake(mkUser(1), 50, 0, EncodeStakePayload(validator, "umesh"))
	require.Error(t, err)
	require.Empty(t, s.AllPendingTxs(0, 0))

	_, err = s.StakeOf(mkUser(1), validator)
	require.ErrorIs(t, err, ErrUnknownStake)
}

func TestUnstakeCommitAndWithdrawUnbonded(t *testing.T) {
	validator := mkValoper(6)
	vault := newFakeVault()
	s := newTestStaking(vault, validator)
	user := mkUser(20)

	openAndCommitStake(t, s, user, validator, 200)

	id, err := s.Unstake(user, validator, 80)
	require.NoError(t, err)

	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(120), stake.Amount.Lo()) // optimistic reduction visible immediately
	require.Equal(t, uint64(200), stake.Amount.Hi())

	require.NoError(t, s.CommitUnstake(id))
	stake, err = s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(120), stake.Amount.Hi())

	total, err := s.WithdrawUnbonded(user)
	require.NoError(t, err)
	require.Equal(t, uint64(80), total)
	require.Equal(t, uint64(80), vault.released[user])

	// A second withdraw with nothing matured pays nothing further.
	total, err = s.WithdrawUnbonded(user)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
}

func TestUnstakeRejectsBeyondStake(t *testing.T) {
	validator := mkValoper(7)
	s := newTestStaking(newFakeVault(), validator)
	user := mkUser(21)
	openAndCommitStake(t, s, user, validator, 50)

	_, err := s.Unstake(user, validator, 51)
	var insufficient *ErrInsufficientStake
	require.ErrorAs(t, err, &insufficient)
}

func TestRollbackUnstakeRestoresStakeAndDropsPendingUnbond(t *testing.T) {
	validator := mkValoper(8)
	s := newTestStaking(newFakeVault(), validator)
	user := mkUser(22)
	openAndCommitStake(t, s, user, validator, 100)

	id, err := s.Unstake(user, validator, 40)
	require.NoError(t, err)

	require.NoError(t, s.RollbackUnstake(id))

	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(100), stake.Amount.Lo())
	require.Equal(t, uint64(100), stake.Amount.Hi())
	require.Empty(t, stake.PendingUnbonds)

	total, err := s.WithdrawUnbonded(user)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
}

func TestHandleSlashingReducesStakeAndPropagatesToVault(t *testing.T) {
	validator := mkValoper(9)
	vault := newFakeVault()
	s := newTestStaking(vault, validator)
	user := mkUser(23)
	openAndCommitStake(t, s, user, validator, 100)

	require.NoError(t, s.HandleSlashing(validator, 100_000)) // 10%

	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(90), stake.Amount.Lo())
	require.Equal(t, uint64(90), stake.Amount.Hi())
	require.Equal(t, []uint64{100}, vault.slashed)
}

func TestDistributeRewardsRequiresStake(t *testing.T) {
	validator := mkValoper(10)
	s := newTestStaking(newFakeVault(), validator)
	require.ErrorIs(t, s.DistributeRewards(validator, 100), ErrNoStake)
}
