// Package state is the core API for the node and implements all the
// business rules and processing.
package state

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/mempool"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for background mining and tx sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalShareTx(tx database.Tx)
}

// Gossip interface represents the behavior required to be implemented by
// any package providing the peer gossip protocol. Broadcasts are injected
// this way so the chain logic never depends on the transport.
type Gossip interface {
	Shutdown()
	Connect(host string) error
	PeerHosts() []string
	BroadcastLatestBlock()
	BroadcastPool()
}

// =============================================================================

// Config represents the configuration required to start the node.
type Config struct {
	PrivateKey *ecdsa.PrivateKey
	EvHandler  EventHandler
}

// State manages the blockchain node: the chain, the set of unspent
// outputs, the mempool and the wiring to gossip and background workers.
type State struct {
	mu sync.RWMutex

	privateKey *ecdsa.PrivateKey
	address    string
	evHandler  EventHandler

	chain   []database.Block
	utxoSet database.UTXOSet
	mempool *mempool.Mempool

	// mineCancel cancels an in-flight proof of work search when a peer
	// block or a heavier chain makes it moot.
	mineCancel context.CancelFunc

	Worker Worker
	gossip Gossip
}

// New constructs a new node state starting from the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	state := State{
		privateKey: cfg.PrivateKey,
		address:    signature.Address(cfg.PrivateKey),
		evHandler:  ev,

		chain:   []database.Block{database.GenesisBlock()},
		utxoSet: database.GenesisUTXOSet(),
		mempool: mempool.New(),
	}

	// The Worker and Gossip are not set here. The calls to worker.Run and
	// p2p.Run will register themselves and start everything up and running.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	if s.gossip != nil {
		s.gossip.Shutdown()
	}

	return nil
}

// RegisterGossip binds the gossip implementation. Called once at startup by
// the p2p package.
func (s *State) RegisterGossip(g Gossip) {
	s.gossip = g
}

// =============================================================================

// cancelMining stops an in-flight proof of work search, if there is one.
// Callers must hold the state mutex.
func (s *State) cancelMining() {
	if s.mineCancel != nil {
		s.mineCancel()
		s.mineCancel = nil
	}
}
