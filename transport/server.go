package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	rpc "github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
)

// Service exposes the dispatcher's ack and introspection surface over
// JSON-RPC, for a remote system (or operator tooling) that prefers a
// request/response call over a websocket push, and for polling pending
// correlation counts. Grounded on vms/platformvm/vm.go's
// rpc.NewServer()/RegisterCodec/RegisterService wiring.
type Service struct {
	dispatcher *Dispatcher
}

// AckArgs/AckReply mirror an Envelope{Type: MsgAck}'s fields.
type AckArgs struct {
	StakingTxID uint64 `json:"staking_tx_id"`
	Accepted    bool   `json:"accepted"`
}

type AckReply struct {
	OK bool `json:"ok"`
}

// Ack applies a remote acknowledgment the same way Hub's read pump does,
// for callers that reach this module over plain JSON-RPC instead of the
// websocket stream.
func (s *Service) Ack(_ *http.Request, args *AckArgs, reply *AckReply) error {
	if err := s.dispatcher.Ack(args.StakingTxID, args.Accepted); err != nil {
		return err
	}
	reply.OK = true
	return nil
}

type PendingArgs struct{}

type PendingReply struct {
	Count int `json:"count"`
}

// Pending reports how many staking txs are still awaiting an ack.
func (s *Service) Pending(_ *http.Request, _ *PendingArgs, reply *PendingReply) error {
	reply.Count = s.dispatcher.Pending()
	return nil
}

// NewServer builds this module's HTTP surface: "/rpc" for the JSON-RPC
// query/ack service, "/ws" for the websocket push/ack stream.
func NewServer(dispatcher *Dispatcher, hub *Hub) (http.Handler, error) {
	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json")
	rpcServer.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")
	if err := rpcServer.RegisterService(&Service{dispatcher: dispatcher}, "Transport"); err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle("/rpc", rpcServer)
	router.Handle("/ws", hub)
	return router, nil
}
