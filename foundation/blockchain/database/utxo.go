package database

import (
	"fmt"
	"sort"
)

// UTxO represents a live, spendable output in the ledger. The identity of
// an entry is the (TxOutID, TxOutIndex) pair.
type UTxO struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Address    string `json:"address"`
	Amount     uint64 `json:"amount"`
}

// UTXORef is the identity key of an unspent output.
type UTXORef struct {
	TxOutID    string
	TxOutIndex uint32
}

// UTXOSet maintains the set of unspent outputs keyed by identity.
type UTXOSet map[UTXORef]UTxO

// Clone returns an independent copy of the set.
func (set UTXOSet) Clone() UTXOSet {
	clone := make(UTXOSet, len(set))
	for ref, utxo := range set {
		clone[ref] = utxo
	}

	return clone
}

// Values returns the unspent outputs in a deterministic order.
func (set UTXOSet) Values() []UTxO {
	utxos := make([]UTxO, 0, len(set))
	for _, utxo := range set {
		utxos = append(utxos, utxo)
	}

	sort.Slice(utxos, func(i, j int) bool {
		if utxos[i].TxOutID != utxos[j].TxOutID {
			return utxos[i].TxOutID < utxos[j].TxOutID
		}
		return utxos[i].TxOutIndex < utxos[j].TxOutIndex
	})

	return utxos
}

// ByAddress returns the unspent outputs owned by the specified address in a
// deterministic order.
func (set UTXOSet) ByAddress(address string) []UTxO {
	var utxos []UTxO
	for _, utxo := range set.Values() {
		if utxo.Address == address {
			utxos = append(utxos, utxo)
		}
	}

	return utxos
}

// Balance sums the unspent amounts owned by the specified address.
func (set UTXOSet) Balance(address string) uint64 {
	var total uint64
	for _, utxo := range set {
		if utxo.Address == address {
			total += utxo.Amount
		}
	}

	return total
}

// =============================================================================

// ProcessTransactions validates the specified transaction list as the body
// of the block at blockIndex and, on success, returns the set of unspent
// outputs after applying it. The input set is never mutated so a failed
// block leaves the ledger untouched.
func ProcessTransactions(txs []Tx, set UTXOSet, blockIndex uint64) (UTXOSet, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("%w: block has no transactions", ErrBadCoinbase)
	}

	// The first transaction must be the coinbase for this block.
	if err := validateCoinbase(txs[0], blockIndex); err != nil {
		return nil, err
	}

	// No two inputs anywhere in the block may consume the same output.
	seen := make(map[UTXORef]struct{})
	for _, tx := range txs {
		for _, txIn := range tx.TxIns {
			ref := UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}
			if _, exists := seen[ref]; exists {
				return nil, fmt.Errorf("%w: %s:%d", ErrDoubleSpendInBlock, txIn.TxOutID, txIn.TxOutIndex)
			}
			seen[ref] = struct{}{}
		}
	}

	// Every regular transaction must validate against the pre-block set.
	for i, tx := range txs[1:] {
		if err := ValidateTransaction(tx, set); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
	}

	// Apply the block: consume inputs, then produce outputs, in block order.
	newSet := set.Clone()
	for _, tx := range txs {
		for _, txIn := range tx.TxIns {
			delete(newSet, UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex})
		}

		for i, txOut := range tx.TxOuts {
			ref := UTXORef{TxOutID: tx.ID, TxOutIndex: uint32(i)}
			newSet[ref] = UTxO{
				TxOutID:    tx.ID,
				TxOutIndex: uint32(i),
				Address:    txOut.Address,
				Amount:     txOut.Amount,
			}
		}
	}

	return newSet, nil
}
