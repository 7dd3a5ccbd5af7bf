// Package mempool maintains the pool of transactions waiting to be mined
// into a block.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// ErrDoubleSpendInPool is returned when a transaction tries to consume an
// output already consumed by a pooled transaction.
var ErrDoubleSpendInPool = errors.New("output already consumed by a pooled transaction")

// Mempool represents the pending transactions in insertion order. Ordering
// is not a consensus concern, the miner treats the pool as an unordered list.
type Mempool struct {
	mu   sync.RWMutex
	pool []database.Tx
	ins  map[database.UTXORef]struct{}
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		ins: make(map[database.UTXORef]struct{}),
	}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Copy returns the pooled transactions in insertion order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, len(mp.pool))
	copy(txs, mp.pool)

	return txs
}

// Add admits a transaction to the pool. The transaction must validate
// against the current set of unspent outputs and must not consume an output
// any pooled transaction already consumes.
func (mp *Mempool) Add(tx database.Tx, set database.UTXOSet) error {
	if err := database.ValidateTransaction(tx, set); err != nil {
		return fmt.Errorf("invalid pool transaction: %w", err)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, txIn := range tx.TxIns {
		ref := database.UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}
		if _, exists := mp.ins[ref]; exists {
			return fmt.Errorf("invalid pool transaction: %w: %s:%d", ErrDoubleSpendInPool, txIn.TxOutID, txIn.TxOutIndex)
		}
	}

	mp.pool = append(mp.pool, tx)
	for _, txIn := range tx.TxIns {
		mp.ins[database.UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}] = struct{}{}
	}

	return nil
}

// Update drops every pooled transaction that references an output no longer
// present in the new set of unspent outputs. Called whenever a block is
// appended or the chain is replaced.
func (mp *Mempool) Update(set database.UTXOSet) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var pool []database.Tx
	ins := make(map[database.UTXORef]struct{})

	for _, tx := range mp.pool {
		if !allInputsLive(tx, set) {
			continue
		}

		pool = append(pool, tx)
		for _, txIn := range tx.TxIns {
			ins[database.UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}] = struct{}{}
		}
	}

	mp.pool = pool
	mp.ins = ins
}

// ContainsInput reports whether any pooled transaction consumes the
// specified output.
func (mp *Mempool) ContainsInput(ref database.UTXORef) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.ins[ref]
	return exists
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.ins = make(map[database.UTXORef]struct{})
}

// =============================================================================

// allInputsLive reports whether every input of the transaction still
// references a live unspent output.
func allInputsLive(tx database.Tx, set database.UTXOSet) bool {
	for _, txIn := range tx.TxIns {
		if _, exists := set[database.UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}]; !exists {
			return false
		}
	}

	return true
}
