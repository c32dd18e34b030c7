package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/meshsec/provider-core/staking"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubPushDeliversEnvelopeToConnectedPeer(t *testing.T) {
	_, _, d := wireVaultAndStaking(t, mkValoper(10))
	hub := NewHub(d, nil)
	d.AttachHub(hub)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Push(Envelope{Type: MsgStake, Amount: 50, StakingTxID: 7}))

	var got Envelope
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, MsgStake, got.Type)
	require.Equal(t, uint64(50), got.Amount)
	require.Equal(t, uint64(7), got.StakingTxID)
}

func TestHubReadPumpAppliesInboundAck(t *testing.T) {
	validator := mkValoper(11)
	_, s, d := wireVaultAndStaking(t, validator)
	hub := NewHub(d, nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	user := mkUser(11)
	err := s.ReceiveVirtualStake(user, 30, 0, staking.EncodeStakePayload(validator, "umesh"))
	require.NoError(t, err)
	pending := s.AllPendingTxs(0, 0)
	require.Len(t, pending, 1)
	stakingTxID := uint64(pending[0].ID)

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Envelope{Type: MsgAck, StakingTxID: stakingTxID, Accepted: true}))

	require.Eventually(t, func() bool {
		return d.Pending() == 0
	}, time.Second, 10*time.Millisecond)

	stake, err := s.StakeOf(user, validator)
	require.NoError(t, err)
	require.Equal(t, uint64(30), stake.Amount.Lo())
}

func TestHubPushWithNoPeersReturnsError(t *testing.T) {
	_, _, d := wireVaultAndStaking(t, mkValoper(12))
	hub := NewHub(d, nil)
	err := hub.Push(Envelope{Type: MsgStake})
	require.ErrorIs(t, err, ErrNoRemotePeers)
}
