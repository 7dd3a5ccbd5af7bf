package state

import (
	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// QueryBlockByHash searches the chain for a block with the specified hash.
func (s *State) QueryBlockByHash(hash string) (database.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, block := range s.chain {
		if block.Hash == hash {
			return block, true
		}
	}

	return database.Block{}, false
}

// QueryTransactionByID searches every block for a transaction with the
// specified id.
func (s *State) QueryTransactionByID(id string) (database.Tx, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, block := range s.chain {
		for _, tx := range block.Transactions {
			if tx.ID == id {
				return tx, true
			}
		}
	}

	return database.Tx{}, false
}

// QueryBalanceByAddress sums the unspent outputs owned by any address.
func (s *State) QueryBalanceByAddress(address string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxoSet.Balance(address)
}
