package transport

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meshsec/provider-core/addr"
	"github.com/meshsec/provider-core/staking"
	"github.com/meshsec/provider-core/validatorset"
	"github.com/meshsec/provider-core/vault"
)

func mkUser(b byte) addr.Address { return addr.Address{0: b} }
func mkValoper(b byte) addr.Valoper {
	var v addr.Valoper
	v[0] = b
	return v
}

// wireVaultAndStaking builds a real vault.Vault and staking.Staking pair
// and connects them through a Dispatcher, exactly the way cmd/meshd does
// at startup — only without a Hub, so these tests drive Emit/Ack
// directly instead of over a socket.
func wireVaultAndStaking(t *testing.T, validator addr.Valoper) (*vault.Vault, *staking.Staking, *Dispatcher) {
	t.Helper()

	v := vault.New(vault.Config{CollateralDenom: "umesh"}, nil, nil)

	vs := validatorset.New()
	vs.AddValidators([]validatorset.Validator{{Valoper: validator, Active: true}})

	var stakingAddr addr.Destination
	stakingAddr[0] = 0xAA
	stakingCfg := staking.Config{
		StakingDenom: "umesh",
		SelfAddress:  stakingAddr,
		MaxSlashPPM:  500_000,
	}

	d := NewDispatcher(v, nil, nil)
	s := staking.New(stakingCfg, vs, v, d, nil)
	d.AttachStaking(s)

	v.RegisterDestination(s)
	return v, s, d
}

func TestStakeRemoteCommitsBothSidesOnAccept(t *testing.T) {
	validator := mkValoper(1)
	v, s, d := wireVaultAndStaking(t, validator)
	user := mkUser(1)
	require.NoError(t, v.Bond(user, 1000, "umesh"))

	vaultTxID, err := v.StakeRemote(user, s.Address(), 200, staking.EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)
	require.Equal(t, 1, d.Pending())

	// Find the staking tx id the dispatcher is tracking for this vaultTxID.
	stakingTxs := s.AllPendingTxs(0, 0)
	require.Len(t, stakingTxs, 1)
	stakingTxID := uint64(stakingTxs[0].ID)

	require.NoError(t, d.Ack(stakingTxID, true))
	require.Equal(t, 0, d.Pending())

	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(200), stake.Amount.Lo())

	// The vault tx must have settled too: AllPendingTxs is empty and the
	// lien is committed (a second commit attempt now fails as unknown).
	require.Empty(t, v.AllPendingTxs(0, 0))
	require.ErrorIs(t, v.CommitTx(s.Address(), vaultTxID), vault.ErrUnknownTx)
}

func TestStakeRemoteRollsBackBothSidesOnReject(t *testing.T) {
	validator := mkValoper(2)
	v, s, d := wireVaultAndStaking(t, validator)
	user := mkUser(2)
	require.NoError(t, v.Bond(user, 1000, "umesh"))

	_, err := v.StakeRemote(user, s.Address(), 150, staking.EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)

	stakingTxs := s.AllPendingTxs(0, 0)
	require.Len(t, stakingTxs, 1)
	stakingTxID := uint64(stakingTxs[0].ID)

	require.NoError(t, d.Ack(stakingTxID, false))

	_, err = s.StakeOf(user, validator)
	require.ErrorIs(t, err, staking.ErrUnknownStake)

	// The optimistic lien reservation must have unwound too: free
	// collateral is back to the full bonded amount.
	account, err := v.Account(user)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), account.Free.Hi())
}

func TestUnstakeAckHasNoVaultCorrelation(t *testing.T) {
	validator := mkValoper(3)
	_, s, d := wireVaultAndStaking(t, validator)
	user := mkUser(3)

	err := s.ReceiveVirtualStake(user, 100, 0, staking.EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)
	pending := s.AllPendingTxs(0, 0)
	require.Len(t, pending, 1)
	require.NoError(t, d.Ack(uint64(pending[0].ID), true))
	require.Equal(t, 0, d.Pending())

	id, err := s.Unstake(user, validator, 40)
	require.NoError(t, err)
	require.Equal(t, 1, d.Pending())

	require.NoError(t, d.Ack(uint64(id), true))
	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(60), stake.Amount.Hi())
}

func TestAckRejectsUnknownStakingTxID(t *testing.T) {
	_, _, d := wireVaultAndStaking(t, mkValoper(4))
	err := d.Ack(999, true)
	require.ErrorIs(t, err, ErrUnknownCorrelation)
}

func TestEmitWithoutHubStillRecordsCorrelation(t *testing.T) {
	validator := mkValoper(5)
	v, s, d := wireVaultAndStaking(t, validator)
	user := mkUser(5)
	require.NoError(t, v.Bond(user, 1000, "umesh"))

	_, err := v.StakeRemote(user, s.Address(), 10, staking.EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)
	require.Equal(t, 1, d.Pending())
}
