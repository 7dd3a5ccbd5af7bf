// Package p2p implements the gossip protocol between nodes over persistent
// websocket sessions.
package p2p

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/peer"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
)

// poolQueryGrace is how long a fresh session waits before asking for the
// remote transaction pool, so the remote side is ready to answer.
const poolQueryGrace = 500 * time.Millisecond

// Config represents the configuration required to start the gossip server.
type Config struct {
	State     *state.State
	Host      string
	EvHandler state.EventHandler
}

// Server owns the peer listener and every live peer session.
type Server struct {
	state     *state.State
	host      string
	evHandler state.EventHandler
	peers     *peer.PeerSet
	upgrader  websocket.Upgrader
	listener  *http.Server
}

// Run creates the gossip server, registers it with the state package, and
// starts the peer listener.
func Run(cfg Config) (*Server, error) {
	srv := Server{
		state:     cfg.State,
		host:      cfg.Host,
		evHandler: cfg.EvHandler,
		peers:     peer.NewPeerSet(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	// Register this server with the state package so chain events can be
	// broadcast without the state depending on the transport.
	cfg.State.RegisterGossip(&srv)

	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.accept)

	srv.listener = &http.Server{
		Addr:    cfg.Host,
		Handler: mux,
	}

	go func() {
		srv.evHandler("p2p: listener started: host[%s]", cfg.Host)
		if err := srv.listener.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.evHandler("p2p: listener: ERROR: %s", err)
		}
	}()

	return &srv, nil
}

// Shutdown closes the listener and every peer session.
func (s *Server) Shutdown() {
	s.evHandler("p2p: shutdown: started")
	defer s.evHandler("p2p: shutdown: completed")

	s.listener.Close()
	s.peers.Shutdown()
}

// =============================================================================
// These methods implement the state.Gossip interface.

// Connect dials a peer and starts a session over the new connection.
func (s *Server) Connect(host string) error {
	url := fmt.Sprintf("ws://%s/", host)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("connecting to peer %s: %w", host, err)
	}

	go s.runSession(peer.New(conn))

	return nil
}

// PeerHosts returns the host:port of every connected peer.
func (s *Server) PeerHosts() []string {
	return s.peers.Hosts()
}

// BroadcastLatestBlock shares the newest block with every connected peer.
func (s *Server) BroadcastLatestBlock() {
	msg, err := newBlockchainResponse([]database.Block{s.state.RetrieveLatestBlock()})
	if err != nil {
		s.evHandler("p2p: BroadcastLatestBlock: ERROR: %s", err)
		return
	}

	s.broadcast(msg)
}

// BroadcastPool shares the pending transactions with every connected peer.
func (s *Server) BroadcastPool() {
	msg, err := newPoolResponse(s.state.RetrieveMempool())
	if err != nil {
		s.evHandler("p2p: BroadcastPool: ERROR: %s", err)
		return
	}

	s.broadcast(msg)
}

// =============================================================================

// accept upgrades an inbound connection into a peer session.
func (s *Server) accept(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.evHandler("p2p: accept: upgrade: ERROR: %s", err)
		return
	}

	go s.runSession(peer.New(conn))
}

// runSession owns one peer for its lifetime: it starts the write pump,
// performs the opening queries and dispatches every inbound frame. A read
// or transport error ends the session and removes the peer.
func (s *Server) runSession(p *peer.Peer) {
	s.evHandler("p2p: session: started: peer[%s]", p.Host())

	s.peers.Add(p)
	go p.WritePump()

	defer func() {
		s.peers.Remove(p)
		s.evHandler("p2p: session: closed: peer[%s]", p.Host())
	}()

	// Ask for the tip right away. The pool query waits out the grace
	// period so the remote side has the session fully up.
	s.send(p, newQuery(QueryLatest))
	timer := time.AfterFunc(poolQueryGrace, func() {
		s.send(p, newQuery(QueryTransactionPool))
	})
	defer timer.Stop()

	for {
		frame, err := p.ReadFrame()
		if err != nil {
			s.evHandler("p2p: session: read: peer[%s]: %s", p.Host(), err)
			return
		}

		s.dispatch(p, frame)
	}
}

// dispatch routes one inbound frame through the protocol state machine.
// Failures are logged, never fatal to the process.
func (s *Server) dispatch(p *peer.Peer, frame []byte) {
	msg, err := decodeMessage(frame)
	if err != nil {
		s.evHandler("p2p: dispatch: peer[%s]: %s", p.Host(), err)
		return
	}

	switch msg.Type {
	case QueryLatest:
		resp, err := newBlockchainResponse([]database.Block{s.state.RetrieveLatestBlock()})
		if err != nil {
			s.evHandler("p2p: dispatch: QueryLatest: ERROR: %s", err)
			return
		}
		s.send(p, resp)

	case QueryAll:
		resp, err := newBlockchainResponse(s.state.RetrieveChain())
		if err != nil {
			s.evHandler("p2p: dispatch: QueryAll: ERROR: %s", err)
			return
		}
		s.send(p, resp)

	case ResponseBlockchain:
		blocks, err := decodeBlocks(msg)
		if err != nil {
			s.evHandler("p2p: dispatch: ResponseBlockchain: peer[%s]: %s", p.Host(), err)
			return
		}
		s.reconcile(p, blocks)

	case QueryTransactionPool:
		resp, err := newPoolResponse(s.state.RetrieveMempool())
		if err != nil {
			s.evHandler("p2p: dispatch: QueryTransactionPool: ERROR: %s", err)
			return
		}
		s.send(p, resp)

	case ResponseTransactionPool:
		txs, err := decodeTxs(msg)
		if err != nil {
			s.evHandler("p2p: dispatch: ResponseTransactionPool: peer[%s]: %s", p.Host(), err)
			return
		}
		s.admitPool(p, txs)

	default:
		s.evHandler("p2p: dispatch: peer[%s]: unknown message type %d", p.Host(), msg.Type)
	}
}

// reconcile applies the chain reconciliation rules to a received block
// list. The last received block is compared against the local tip.
func (s *Server) reconcile(p *peer.Peer, blocks []database.Block) {
	if len(blocks) == 0 {
		s.evHandler("p2p: reconcile: peer[%s]: received empty chain", p.Host())
		return
	}

	received := blocks[len(blocks)-1]
	local := s.state.RetrieveLatestBlock()

	switch {

	// Nothing newer than what we already have.
	case received.Index <= local.Index:
		s.evHandler("p2p: reconcile: peer[%s]: blk[%d] not ahead of local blk[%d]", p.Host(), received.Index, local.Index)

	// The received block extends our tip directly.
	case local.Hash == received.PrevHash:
		if err := s.state.AddPeerBlock(received); err != nil {
			s.evHandler("p2p: reconcile: peer[%s]: add block: %s", p.Host(), err)
			return
		}
		s.BroadcastLatestBlock()

	// A single block that doesn't link: ask the network for full chains.
	case len(blocks) == 1:
		s.evHandler("p2p: reconcile: peer[%s]: unlinked tip, querying full chains", p.Host())
		s.broadcast(newQuery(QueryAll))

	// A full chain that claims to be ahead: try to replace ours.
	default:
		if err := s.state.ReplaceChain(blocks); err != nil {
			s.evHandler("p2p: reconcile: peer[%s]: replace chain: %s", p.Host(), err)
			return
		}
		s.BroadcastLatestBlock()
	}
}

// admitPool tries every received transaction against the pool. Admission
// failures are logged and skipped. Any admission success is shared onward.
func (s *Server) admitPool(p *peer.Peer, txs []database.Tx) {
	var admitted bool
	for _, tx := range txs {
		if err := s.state.SubmitPeerTransaction(tx); err != nil {
			s.evHandler("p2p: admitPool: peer[%s]: tx[%s]: %s", p.Host(), tx.ID, err)
			continue
		}
		admitted = true
	}

	if admitted {
		s.BroadcastPool()
	}
}

// =============================================================================

// send encodes and enqueues a message for one peer.
func (s *Server) send(p *peer.Peer, msg Message) {
	frame, err := encodeFrame(msg)
	if err != nil {
		s.evHandler("p2p: send: encoding: ERROR: %s", err)
		return
	}

	if !p.Send(frame) {
		s.evHandler("p2p: send: peer[%s]: queue full or session closed", p.Host())
	}
}

// broadcast fans a message out to every connected peer. Send failures are
// logged and the fan-out continues; there is no retry.
func (s *Server) broadcast(msg Message) {
	frame, err := encodeFrame(msg)
	if err != nil {
		s.evHandler("p2p: broadcast: encoding: ERROR: %s", err)
		return
	}

	for _, p := range s.peers.Copy() {
		if !p.Send(frame) {
			s.evHandler("p2p: broadcast: peer[%s]: queue full or session closed", p.Host())
		}
	}
}
