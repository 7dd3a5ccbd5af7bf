package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

// CoinbaseAmount is the number of tokens issued by the coinbase transaction
// of every mined block.
const CoinbaseAmount = 50

// Set of errors for transaction validation failures.
var (
	ErrBadCoinbase        = errors.New("invalid coinbase transaction")
	ErrUnknownUTXO        = errors.New("referenced unspent output not found")
	ErrInvalidSignature   = errors.New("signature does not verify")
	ErrConservation       = errors.New("input amounts do not equal output amounts")
	ErrDoubleSpendInBlock = errors.New("duplicate output reference in block")
)

// =============================================================================

// TxIn references an output of a previous transaction. The signature is
// empty on the coinbase input.
type TxIn struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Signature  string `json:"signature"`
}

// TxOut assigns an amount of tokens to an address.
type TxOut struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Tx represents a transfer of tokens from a set of unspent outputs to a new
// set of outputs.
type Tx struct {
	ID     string  `json:"id"`
	TxIns  []TxIn  `json:"txIns"`
	TxOuts []TxOut `json:"txOuts"`
}

// TxID derives the transaction id. The id covers every input's output
// reference and every output, but never the signatures, so inputs can be
// signed with the id without self-reference.
func TxID(tx Tx) string {
	var sb strings.Builder

	for _, txIn := range tx.TxIns {
		sb.WriteString(txIn.TxOutID)
		fmt.Fprintf(&sb, "%d", txIn.TxOutIndex)
	}

	for _, txOut := range tx.TxOuts {
		sb.WriteString(txOut.Address)
		fmt.Fprintf(&sb, "%d", txOut.Amount)
	}

	return signature.Hash(sb.String())
}

// NewCoinbaseTx constructs the reward transaction for the block at the
// specified index, paying the configured amount to the address.
func NewCoinbaseTx(address string, blockIndex uint64) Tx {
	tx := Tx{
		TxIns:  []TxIn{{TxOutID: "", TxOutIndex: uint32(blockIndex), Signature: ""}},
		TxOuts: []TxOut{{Address: address, Amount: CoinbaseAmount}},
	}
	tx.ID = TxID(tx)

	return tx
}

// =============================================================================

// ValidateStructure checks a transaction is well formed independent of any
// ledger state: inputs and outputs exist, amounts are positive, and every
// output address conforms to the address format.
func (tx Tx) ValidateStructure() error {
	if tx.ID == "" {
		return errors.New("transaction is missing an id")
	}

	if len(tx.TxIns) == 0 {
		return errors.New("transaction has no inputs")
	}

	if len(tx.TxOuts) == 0 {
		return errors.New("transaction has no outputs")
	}

	for i, txOut := range tx.TxOuts {
		if !signature.IsValidAddress(txOut.Address) {
			return fmt.Errorf("output %d has an invalid address %q", i, txOut.Address)
		}
		if txOut.Amount == 0 {
			return fmt.Errorf("output %d has a zero amount", i)
		}
	}

	return nil
}

// validateCoinbase checks the first transaction of a block follows the
// coinbase rules for the specified block index.
func validateCoinbase(tx Tx, blockIndex uint64) error {
	if tx.ID != TxID(tx) {
		return fmt.Errorf("%w: id %s does not match derivation", ErrBadCoinbase, tx.ID)
	}

	if len(tx.TxIns) != 1 {
		return fmt.Errorf("%w: expected one input, got %d", ErrBadCoinbase, len(tx.TxIns))
	}

	txIn := tx.TxIns[0]
	if txIn.TxOutID != "" || txIn.Signature != "" {
		return fmt.Errorf("%w: input must carry an empty output id and signature", ErrBadCoinbase)
	}

	if uint64(txIn.TxOutIndex) != blockIndex {
		return fmt.Errorf("%w: input index %d does not match block index %d", ErrBadCoinbase, txIn.TxOutIndex, blockIndex)
	}

	if len(tx.TxOuts) != 1 {
		return fmt.Errorf("%w: expected one output, got %d", ErrBadCoinbase, len(tx.TxOuts))
	}

	if !signature.IsValidAddress(tx.TxOuts[0].Address) {
		return fmt.Errorf("%w: invalid output address", ErrBadCoinbase)
	}

	if tx.TxOuts[0].Amount != CoinbaseAmount {
		return fmt.Errorf("%w: output amount %d is not the coinbase amount %d", ErrBadCoinbase, tx.TxOuts[0].Amount, CoinbaseAmount)
	}

	return nil
}

// ValidateTransaction performs the full semantic validation of a regular
// transaction against the current set of unspent outputs.
func ValidateTransaction(tx Tx, set UTXOSet) error {
	if err := tx.ValidateStructure(); err != nil {
		return err
	}

	if tx.ID != TxID(tx) {
		return fmt.Errorf("transaction id %s does not match derivation", tx.ID)
	}

	var inTotal uint64
	for i, txIn := range tx.TxIns {
		utxo, exists := set[UTXORef{TxOutID: txIn.TxOutID, TxOutIndex: txIn.TxOutIndex}]
		if !exists {
			return fmt.Errorf("%w: input %d references %s:%d", ErrUnknownUTXO, i, txIn.TxOutID, txIn.TxOutIndex)
		}

		if !signature.Verify(utxo.Address, tx.ID, txIn.Signature) {
			return fmt.Errorf("%w: input %d", ErrInvalidSignature, i)
		}

		inTotal += utxo.Amount
	}

	var outTotal uint64
	for _, txOut := range tx.TxOuts {
		outTotal += txOut.Amount
	}

	if inTotal != outTotal {
		return fmt.Errorf("%w: inputs %d, outputs %d", ErrConservation, inTotal, outTotal)
	}

	return nil
}
