// Package wallet provides the private key handling and the construction of
// signed spend transactions.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/mempool"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

// ErrInsufficientFunds is returned when the owned unspent outputs cannot
// cover the requested amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrInvalidAddress is returned when a receiver address does not conform
// to the address format.
var ErrInvalidAddress = errors.New("invalid receiver address")

// LoadOrCreate reads the single line, hex encoded private key from the
// specified file. A missing file is populated with a newly generated key.
func LoadOrCreate(path string) (*ecdsa.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		return crypto.LoadECDSA(path)
	}

	privateKey, err := signature.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating wallet directory: %w", err)
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, fmt.Errorf("writing wallet file: %w", err)
	}

	return privateKey, nil
}

// =============================================================================

// CreateTransaction builds and signs a transaction paying the specified
// amount to the receiver. Outputs already committed to pooled transactions
// are never selected, so pending spends can't be double spent.
func CreateTransaction(receiver string, amount uint64, privateKey *ecdsa.PrivateKey, pool *mempool.Mempool, set database.UTXOSet) (database.Tx, error) {
	if !signature.IsValidAddress(receiver) {
		return database.Tx{}, fmt.Errorf("%w: %q", ErrInvalidAddress, receiver)
	}

	address := signature.Address(privateKey)

	// Select owned outputs until the amount is covered, skipping outputs a
	// pooled transaction already consumes.
	var selected []database.UTxO
	var total uint64
	for _, utxo := range set.ByAddress(address) {
		if pool != nil && pool.ContainsInput(database.UTXORef{TxOutID: utxo.TxOutID, TxOutIndex: utxo.TxOutIndex}) {
			continue
		}

		selected = append(selected, utxo)
		total += utxo.Amount
		if total >= amount {
			break
		}
	}

	if total < amount {
		return database.Tx{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, amount)
	}

	// Inputs are constructed unsigned. The transaction id covers the output
	// references, so signatures are applied after the id is derived.
	txIns := make([]database.TxIn, len(selected))
	for i, utxo := range selected {
		txIns[i] = database.TxIn{TxOutID: utxo.TxOutID, TxOutIndex: utxo.TxOutIndex}
	}

	txOuts := []database.TxOut{{Address: receiver, Amount: amount}}
	if change := total - amount; change > 0 {
		txOuts = append(txOuts, database.TxOut{Address: address, Amount: change})
	}

	tx := database.Tx{TxIns: txIns, TxOuts: txOuts}
	tx.ID = database.TxID(tx)

	for i := range tx.TxIns {
		sig, err := signature.Sign(privateKey, tx.ID)
		if err != nil {
			return database.Tx{}, fmt.Errorf("signing input %d: %w", i, err)
		}
		tx.TxIns[i].Signature = sig
	}

	return tx, nil
}

// Balance sums the unspent outputs owned by the key's address.
func Balance(privateKey *ecdsa.PrivateKey, set database.UTXOSet) uint64 {
	return set.Balance(signature.Address(privateKey))
}
