package state

import (
	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// RetrieveChain returns a copy of the full chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := make([]database.Block, len(s.chain))
	copy(chain, s.chain)

	return chain
}

// RetrieveLatestBlock returns a copy of the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1]
}

// RetrieveAddress returns the node's own address.
func (s *State) RetrieveAddress() string {
	return s.address
}

// RetrieveMempool returns the pending transactions in insertion order.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveUTXOSet returns a copy of the live set of unspent outputs.
func (s *State) RetrieveUTXOSet() []database.UTxO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxoSet.Values()
}

// RetrieveOwnUTXOs returns the unspent outputs owned by this node.
func (s *State) RetrieveOwnUTXOs() []database.UTxO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxoSet.ByAddress(s.address)
}

// RetrieveBalance returns the balance of this node's address.
func (s *State) RetrieveBalance() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxoSet.Balance(s.address)
}

// RetrieveKnownPeers returns the host:port of every connected peer.
func (s *State) RetrieveKnownPeers() []string {
	if s.gossip == nil {
		return nil
	}

	return s.gossip.PeerHosts()
}

// ConnectPeer dials a new peer and adds the session to the peer set.
func (s *State) ConnectPeer(host string) error {
	if s.gossip == nil {
		return nil
	}

	return s.gossip.Connect(host)
}
