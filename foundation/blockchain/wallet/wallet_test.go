package wallet_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/mempool"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
)

const (
	ownerECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	otherECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// fundedSet hands the owner two outputs (20 and 40) plus one output owned
// by someone else.
func fundedSet(t *testing.T) (database.UTXOSet, string, string) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)
	ownerAddr := signature.Address(ownerKey)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	set := database.UTXOSet{
		{TxOutID: "aa", TxOutIndex: 0}: {TxOutID: "aa", TxOutIndex: 0, Address: ownerAddr, Amount: 20},
		{TxOutID: "bb", TxOutIndex: 0}: {TxOutID: "bb", TxOutIndex: 0, Address: ownerAddr, Amount: 40},
		{TxOutID: "cc", TxOutIndex: 0}: {TxOutID: "cc", TxOutIndex: 0, Address: otherAddr, Amount: 99},
	}

	return set, ownerAddr, otherAddr
}

// =============================================================================

func Test_CreateTransaction(t *testing.T) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)

	set, ownerAddr, otherAddr := fundedSet(t)

	// 30 needs both owned outputs (20 then 40 in selection order) and
	// produces a 30 change output.
	tx, err := wallet.CreateTransaction(otherAddr, 30, ownerKey, mempool.New(), set)
	ifErrFailNow(t, err)

	if len(tx.TxIns) != 2 {
		t.Fatalf("expected two inputs, got %d", len(tx.TxIns))
	}
	if len(tx.TxOuts) != 2 {
		t.Fatalf("expected a payment and a change output, got %d", len(tx.TxOuts))
	}
	if tx.TxOuts[0].Address != otherAddr || tx.TxOuts[0].Amount != 30 {
		t.Fatal("first output should pay the receiver 30")
	}
	if tx.TxOuts[1].Address != ownerAddr || tx.TxOuts[1].Amount != 30 {
		t.Fatal("second output should return 30 change to the owner")
	}

	// The built transaction is fully valid against the ledger.
	ifErrFailNow(t, database.ValidateTransaction(tx, set))
}

func Test_CreateTransaction_NoChange(t *testing.T) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)

	set, _, otherAddr := fundedSet(t)

	// 20 is covered exactly by the first selected output: no change.
	tx, err := wallet.CreateTransaction(otherAddr, 20, ownerKey, mempool.New(), set)
	ifErrFailNow(t, err)

	if len(tx.TxOuts) != 1 {
		t.Fatalf("expected no change output, got %d outputs", len(tx.TxOuts))
	}

	ifErrFailNow(t, database.ValidateTransaction(tx, set))
}

func Test_CreateTransaction_InsufficientFunds(t *testing.T) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)

	set, _, otherAddr := fundedSet(t)

	if _, err := wallet.CreateTransaction(otherAddr, 100, ownerKey, mempool.New(), set); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func Test_CreateTransaction_InvalidReceiver(t *testing.T) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)

	set, _, _ := fundedSet(t)

	if _, err := wallet.CreateTransaction("not-an-address", 10, ownerKey, mempool.New(), set); !errors.Is(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func Test_CreateTransaction_SkipsPooledOutputs(t *testing.T) {
	ownerKey, err := crypto.HexToECDSA(ownerECDSA)
	ifErrFailNow(t, err)

	set, _, otherAddr := fundedSet(t)

	// Commit both owned outputs to a pooled transaction.
	pool := mempool.New()
	pending, err := wallet.CreateTransaction(otherAddr, 60, ownerKey, pool, set)
	ifErrFailNow(t, err)
	ifErrFailNow(t, pool.Add(pending, set))

	// Everything the owner has is pending: a further spend must fail
	// rather than double spend the pending outputs.
	if _, err := wallet.CreateTransaction(otherAddr, 10, ownerKey, pool, set); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds with all outputs pending, got %v", err)
	}
}

func Test_LoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet", "private_key")

	created, err := wallet.LoadOrCreate(path)
	ifErrFailNow(t, err)

	loaded, err := wallet.LoadOrCreate(path)
	ifErrFailNow(t, err)

	if signature.Address(created) != signature.Address(loaded) {
		t.Fatal("loading the wallet file should return the created key")
	}
}
