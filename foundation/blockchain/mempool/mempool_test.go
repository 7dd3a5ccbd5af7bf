package mempool_test

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/mempool"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

const (
	minerECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	otherECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// spendableSet gives the miner key one mined coinbase to spend.
func spendableSet(t *testing.T, addr string) (database.UTXOSet, database.Tx) {
	coinbase := database.NewCoinbaseTx(addr, 1)

	set, err := database.ProcessTransactions([]database.Tx{coinbase}, database.GenesisUTXOSet(), 1)
	ifErrFailNow(t, err)

	return set, coinbase
}

func signedSpend(t *testing.T, keyHex string, srcID string, srcIdx uint32, outs []database.TxOut) database.Tx {
	key, err := crypto.HexToECDSA(keyHex)
	ifErrFailNow(t, err)

	tx := database.Tx{
		TxIns:  []database.TxIn{{TxOutID: srcID, TxOutIndex: srcIdx}},
		TxOuts: outs,
	}
	tx.ID = database.TxID(tx)

	sig, err := signature.Sign(key, tx.ID)
	ifErrFailNow(t, err)
	tx.TxIns[0].Signature = sig

	return tx
}

// =============================================================================

func Test_AddAndDoubleSpend(t *testing.T) {
	minerKey, err := crypto.HexToECDSA(minerECDSA)
	ifErrFailNow(t, err)
	minerAddr := signature.Address(minerKey)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	set, coinbase := spendableSet(t, minerAddr)

	pool := mempool.New()

	first := signedSpend(t, minerECDSA, coinbase.ID, 0, []database.TxOut{
		{Address: otherAddr, Amount: 30},
		{Address: minerAddr, Amount: 20},
	})
	ifErrFailNow(t, pool.Add(first, set))

	if pool.Count() != 1 {
		t.Fatalf("pool should hold one transaction, got %d", pool.Count())
	}

	// A second spend of the same output must be refused, even though it is
	// valid against the ledger on its own.
	second := signedSpend(t, minerECDSA, coinbase.ID, 0, []database.TxOut{
		{Address: otherAddr, Amount: 50},
	})
	if err := pool.Add(second, set); !errors.Is(err, mempool.ErrDoubleSpendInPool) {
		t.Fatalf("expected ErrDoubleSpendInPool, got %v", err)
	}

	if pool.Count() != 1 {
		t.Fatalf("pool should be unchanged after the refused admission, got %d", pool.Count())
	}

	// An invalid transaction never enters the pool.
	invalid := signedSpend(t, otherECDSA, coinbase.ID, 0, []database.TxOut{
		{Address: otherAddr, Amount: 50},
	})
	if err := pool.Add(invalid, set); err == nil {
		t.Fatal("expected an invalid transaction to be refused")
	}
}

func Test_Update(t *testing.T) {
	minerKey, err := crypto.HexToECDSA(minerECDSA)
	ifErrFailNow(t, err)
	minerAddr := signature.Address(minerKey)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	set, coinbase := spendableSet(t, minerAddr)

	pool := mempool.New()

	tx := signedSpend(t, minerECDSA, coinbase.ID, 0, []database.TxOut{
		{Address: otherAddr, Amount: 50},
	})
	ifErrFailNow(t, pool.Add(tx, set))

	if !pool.ContainsInput(database.UTXORef{TxOutID: coinbase.ID, TxOutIndex: 0}) {
		t.Fatal("pool should report the consumed output")
	}

	// Mining the transaction into a block consumes its input. The update
	// must evict it.
	cb2 := database.NewCoinbaseTx(minerAddr, 2)
	set2, err := database.ProcessTransactions([]database.Tx{cb2, tx}, set, 2)
	ifErrFailNow(t, err)

	pool.Update(set2)

	if pool.Count() != 0 {
		t.Fatalf("pool should be empty after its input was consumed, got %d", pool.Count())
	}
	if pool.ContainsInput(database.UTXORef{TxOutID: coinbase.ID, TxOutIndex: 0}) {
		t.Fatal("pool should no longer report the consumed output")
	}
}

func Test_InsertionOrder(t *testing.T) {
	minerKey, err := crypto.HexToECDSA(minerECDSA)
	ifErrFailNow(t, err)
	minerAddr := signature.Address(minerKey)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	// Two independent coinbases give the miner two spendable outputs.
	cb1 := database.NewCoinbaseTx(minerAddr, 1)
	set, err := database.ProcessTransactions([]database.Tx{cb1}, database.GenesisUTXOSet(), 1)
	ifErrFailNow(t, err)

	cb2 := database.NewCoinbaseTx(minerAddr, 2)
	set, err = database.ProcessTransactions([]database.Tx{cb2}, set, 2)
	ifErrFailNow(t, err)

	pool := mempool.New()

	first := signedSpend(t, minerECDSA, cb1.ID, 0, []database.TxOut{{Address: otherAddr, Amount: 50}})
	second := signedSpend(t, minerECDSA, cb2.ID, 0, []database.TxOut{{Address: minerAddr, Amount: 50}})

	ifErrFailNow(t, pool.Add(first, set))
	ifErrFailNow(t, pool.Add(second, set))

	txs := pool.Copy()
	if len(txs) != 2 || txs[0].ID != first.ID || txs[1].ID != second.ID {
		t.Fatal("pool should preserve insertion order")
	}
}
