package state

import (
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
)

// SubmitTransaction builds, signs and admits a transaction paying the
// specified amount to the receiver, then shares it with the network.
func (s *State) SubmitTransaction(receiver string, amount uint64) (database.Tx, error) {
	s.evHandler("state: SubmitTransaction: started: to[%s] amount[%d]", receiver, amount)
	defer s.evHandler("state: SubmitTransaction: completed")

	s.mu.RLock()
	set := s.utxoSet.Clone()
	s.mu.RUnlock()

	tx, err := wallet.CreateTransaction(receiver, amount, s.privateKey, s.mempool, set)
	if err != nil {
		return database.Tx{}, err
	}

	if err := s.mempool.Add(tx, set); err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransaction: tx[%s] admitted to pool", tx.ID)

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// SubmitPeerTransaction admits a transaction received from a peer to
// the pool.
func (s *State) SubmitPeerTransaction(tx database.Tx) error {
	s.mu.RLock()
	set := s.utxoSet.Clone()
	s.mu.RUnlock()

	if err := s.mempool.Add(tx, set); err != nil {
		return err
	}

	s.evHandler("state: SubmitPeerTransaction: tx[%s] admitted to pool", tx.ID)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}
