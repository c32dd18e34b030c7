package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub is the websocket side of the transport: it accepts connections
// from the remote staking system(s), pushes outbound Stake/Unstake
// envelopes to every connected peer, and feeds inbound ack envelopes
// into the dispatcher.
//
// Grounded on chain/node/p2p.go's peer-registry-guarded-by-a-mutex plus
// per-connection read-pump goroutine shape; this hub has no handshake
// step since every peer here is an equally-trusted remote staking
// system, not a P2P mesh member to authenticate.
type Hub struct {
	log        *zap.Logger
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub(dispatcher *Dispatcher, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log.With(zap.String("component", "transport.hub")),
		dispatcher: dispatcher,
		conns:      make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket connection and starts
// reading ack envelopes from it until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go h.readPump(conn)
}

func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			h.log.Info("remote peer disconnected", zap.Error(err))
			return
		}
		if env.Type != MsgAck {
			h.log.Warn("ignoring non-ack envelope from remote", zap.Uint8("type", uint8(env.Type)))
			continue
		}
		if err := h.dispatcher.Ack(env.StakingTxID, env.Accepted); err != nil {
			h.log.Error("applying remote ack failed",
				zap.Error(err), zap.Uint64("staking_tx_id", env.StakingTxID))
		}
	}
}

// Push writes env to every connected remote peer, returning the first
// write error encountered, or ErrNoRemotePeers if none are connected.
func (h *Hub) Push(env Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.conns) == 0 {
		return ErrNoRemotePeers
	}
	var firstErr error
	for conn := range h.conns {
		if err := conn.WriteJSON(env); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Connected reports how many remote peers are currently attached.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
