package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
)

// ErrMiningBusy is returned when a proof of work search is already running.
var ErrMiningBusy = errors.New("mining already in progress")

// =============================================================================

// MineNewBlock drains the mempool behind a fresh coinbase and performs the
// proof of work to extend the chain. The search can be cancelled through
// the context, or by the arrival of a competing block.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	txs := s.mempool.Copy()

	prep, err := s.prepareMining(ctx)
	if err != nil {
		return database.Block{}, err
	}
	defer s.finishMining()

	blockTxs := append([]database.Tx{database.NewCoinbaseTx(s.address, prep.index)}, txs...)

	return s.performMining(prep, blockTxs)
}

// MineRawBlock performs the proof of work over a caller supplied
// transaction list. The list must carry its own valid coinbase or the
// mined block will fail validation.
func (s *State) MineRawBlock(ctx context.Context, txs []database.Tx) (database.Block, error) {
	s.evHandler("state: MineRawBlock: MINING: started: txs[%d]", len(txs))
	defer s.evHandler("state: MineRawBlock: MINING: completed")

	prep, err := s.prepareMining(ctx)
	if err != nil {
		return database.Block{}, err
	}
	defer s.finishMining()

	return s.performMining(prep, txs)
}

// MineTransactionBlock builds a spend transaction to the receiver and mines
// a block carrying just the coinbase and that transaction.
func (s *State) MineTransactionBlock(ctx context.Context, receiver string, amount uint64) (database.Block, error) {
	s.evHandler("state: MineTransactionBlock: MINING: started: to[%s] amount[%d]", receiver, amount)
	defer s.evHandler("state: MineTransactionBlock: MINING: completed")

	s.mu.RLock()
	set := s.utxoSet.Clone()
	s.mu.RUnlock()

	tx, err := wallet.CreateTransaction(receiver, amount, s.privateKey, s.mempool, set)
	if err != nil {
		return database.Block{}, err
	}

	prep, err := s.prepareMining(ctx)
	if err != nil {
		return database.Block{}, err
	}
	defer s.finishMining()

	blockTxs := []database.Tx{database.NewCoinbaseTx(s.address, prep.index), tx}

	return s.performMining(prep, blockTxs)
}

// =============================================================================

// minePrep captures the chain position a proof of work search starts from.
type minePrep struct {
	ctx        context.Context
	index      uint64
	prevHash   string
	timestamp  uint64
	difficulty uint32
}

// prepareMining snapshots the chain tip and registers the cancel function
// a competing block uses to stop the search. Only one search runs at
// a time.
func (s *State) prepareMining(ctx context.Context) (minePrep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mineCancel != nil {
		return minePrep{}, ErrMiningBusy
	}

	mineCtx, cancel := context.WithCancel(ctx)
	s.mineCancel = cancel

	latest := s.chain[len(s.chain)-1]

	return minePrep{
		ctx:        mineCtx,
		index:      latest.Index + 1,
		prevHash:   latest.Hash,
		timestamp:  uint64(time.Now().UnixMilli()),
		difficulty: database.NextDifficulty(s.chain),
	}, nil
}

// finishMining releases the in-flight search registration.
func (s *State) finishMining() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelMining()
}

// performMining runs the search and, on success, validates and appends the
// mined block, then shares it with the network.
func (s *State) performMining(prep minePrep, txs []database.Tx) (database.Block, error) {
	block, err := database.POW(prep.ctx, prep.index, prep.prevHash, prep.timestamp, txs, prep.difficulty, s.evHandler)
	if err != nil {
		return database.Block{}, fmt.Errorf("performing proof of work: %w", err)
	}

	if err := s.validateUpdateState(block); err != nil {
		return database.Block{}, err
	}

	s.NetBroadcastLatestBlock()

	return block, nil
}
