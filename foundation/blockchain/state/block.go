package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// AddPeerBlock takes a block received from a peer, validates it against the
// chain tip and, if that passes, appends it. An in-flight proof of work
// search is cancelled since its parent is no longer the tip.
func (s *State) AddPeerBlock(block database.Block) error {
	s.evHandler("state: AddPeerBlock: started: blk[%d] hash[%s]", block.Index, block.Hash)
	defer s.evHandler("state: AddPeerBlock: completed")

	if err := s.validateUpdateState(block); err != nil {
		return err
	}

	s.mu.Lock()
	s.cancelMining()
	s.mu.Unlock()

	return nil
}

// ReplaceChain evaluates a candidate chain received from a peer and swaps
// it in when it replays cleanly from genesis and is strictly heavier and
// strictly longer than the local chain.
func (s *State) ReplaceChain(candidate []database.Block) error {
	s.evHandler("state: ReplaceChain: started: candidate blocks[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	newSet, err := database.ValidateChain(candidate, uint64(time.Now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("validating candidate chain: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidateWeight := database.ChainWeight(candidate)
	localWeight := database.ChainWeight(s.chain)

	if candidateWeight.Cmp(localWeight) <= 0 || len(candidate) <= len(s.chain) {
		return fmt.Errorf("%w: weight %s vs %s, length %d vs %d",
			database.ErrWeakerChain, candidateWeight, localWeight, len(candidate), len(s.chain))
	}

	s.evHandler("state: ReplaceChain: accepting chain: weight[%s] blocks[%d]", candidateWeight, len(candidate))

	s.chain = candidate
	s.utxoSet = newSet
	s.mempool.Update(newSet)
	s.cancelMining()

	return nil
}

// =============================================================================

// validateUpdateState takes a block and validates it against the consensus
// rules. If the block passes, the chain, the set of unspent outputs and the
// mempool are updated together. All or nothing.
func (s *State) validateUpdateState(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.chain[len(s.chain)-1]

	if err := block.ValidateNextBlock(latest, uint64(time.Now().UnixMilli())); err != nil {
		return err
	}

	if expected := database.NextDifficulty(s.chain); block.Difficulty != expected {
		return fmt.Errorf("%w: difficulty %d, retarget requires %d", database.ErrBadPoW, block.Difficulty, expected)
	}

	newSet, err := database.ProcessTransactions(block.Transactions, s.utxoSet, block.Index)
	if err != nil {
		return err
	}

	s.chain = append(s.chain, block)
	s.utxoSet = newSet
	s.mempool.Update(newSet)

	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(blockJSON))
}
