package state_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/signature"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
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

func newState(t *testing.T, keyHex string) *state.State {
	key, err := crypto.HexToECDSA(keyHex)
	ifErrFailNow(t, err)

	st, err := state.New(state.Config{PrivateKey: key})
	ifErrFailNow(t, err)

	return st
}

// =============================================================================

func Test_GenesisState(t *testing.T) {
	st := newState(t, minerECDSA)

	chain := st.RetrieveChain()
	if len(chain) != 1 || chain[0].Index != 0 {
		t.Fatal("a fresh node should hold just the genesis block")
	}

	// The genesis output is spendable by whoever holds the genesis key.
	genesisAddr := chain[0].Transactions[0].TxOuts[0].Address
	if bal := st.QueryBalanceByAddress(genesisAddr); bal != 50 {
		t.Fatalf("genesis address balance should be 50, got %d", bal)
	}

	if bal := st.RetrieveBalance(); bal != 0 {
		t.Fatalf("a fresh node's own balance should be 0, got %d", bal)
	}
}

func Test_MineAndSpend(t *testing.T) {
	st := newState(t, minerECDSA)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	// Mining a block on an empty pool still pays the coinbase.
	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if block.Index != 1 {
		t.Fatalf("first mined block should have index 1, got %d", block.Index)
	}
	if bal := st.RetrieveBalance(); bal != 50 {
		t.Fatalf("balance should be 50 after mining, got %d", bal)
	}
	if got := len(st.RetrieveUTXOSet()); got != 2 {
		t.Fatalf("set should hold two outputs after mining, got %d", got)
	}

	// Submit a payment: two outputs, 30 to the receiver and 20 change.
	tx, err := st.SubmitTransaction(otherAddr, 30)
	ifErrFailNow(t, err)

	if len(tx.TxOuts) != 2 || tx.TxOuts[0].Amount != 30 || tx.TxOuts[1].Amount != 20 {
		t.Fatal("submitted transaction should pay 30 with 20 change")
	}
	if got := len(st.RetrieveMempool()); got != 1 {
		t.Fatalf("pool should hold the submitted transaction, got %d", got)
	}

	// Mining again includes the pooled transaction and empties the pool.
	if _, err := st.MineNewBlock(context.Background()); err != nil {
		ifErrFailNow(t, err)
	}

	if got := len(st.RetrieveMempool()); got != 0 {
		t.Fatalf("pool should be empty after mining, got %d", got)
	}
	if bal := st.QueryBalanceByAddress(otherAddr); bal != 30 {
		t.Fatalf("receiver balance should be 30, got %d", bal)
	}
	if bal := st.RetrieveBalance(); bal != 70 {
		t.Fatalf("miner balance should be 70 (20 change + 50 reward), got %d", bal)
	}

	// The mined transaction is findable on the chain.
	if _, found := st.QueryTransactionByID(tx.ID); !found {
		t.Fatal("submitted transaction should be on the chain")
	}
}

func Test_UTXOSetMatchesReplay(t *testing.T) {
	st := newState(t, minerECDSA)

	if _, err := st.MineNewBlock(context.Background()); err != nil {
		ifErrFailNow(t, err)
	}

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)

	if _, err := st.SubmitTransaction(signature.Address(otherKey), 10); err != nil {
		ifErrFailNow(t, err)
	}
	if _, err := st.MineNewBlock(context.Background()); err != nil {
		ifErrFailNow(t, err)
	}

	// The incrementally maintained set must equal a replay from genesis.
	replayed, err := database.ValidateChain(st.RetrieveChain(), uint64(time.Now().UnixMilli()))
	ifErrFailNow(t, err)

	if !reflect.DeepEqual(replayed.Values(), st.RetrieveUTXOSet()) {
		t.Fatal("live set should equal the replay from genesis")
	}
}

func Test_InsufficientFunds(t *testing.T) {
	st := newState(t, minerECDSA)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)

	if _, err := st.SubmitTransaction(signature.Address(otherKey), 10_000); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := len(st.RetrieveMempool()); got != 0 {
		t.Fatalf("pool should be unchanged after the failed submit, got %d", got)
	}
}

func Test_AddPeerBlock(t *testing.T) {
	st := newState(t, minerECDSA)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	// A block mined elsewhere that extends our tip is accepted.
	genesis := st.RetrieveLatestBlock()
	block, err := database.POW(context.Background(), 1, genesis.Hash, uint64(time.Now().UnixMilli()),
		[]database.Tx{database.NewCoinbaseTx(otherAddr, 1)}, 0, func(string, ...any) {})
	ifErrFailNow(t, err)

	ifErrFailNow(t, st.AddPeerBlock(block))

	if st.RetrieveLatestBlock().Hash != block.Hash {
		t.Fatal("accepted peer block should be the new tip")
	}
	if bal := st.QueryBalanceByAddress(otherAddr); bal != 50 {
		t.Fatalf("peer miner balance should be 50, got %d", bal)
	}

	// The same block again no longer links.
	if err := st.AddPeerBlock(block); err == nil {
		t.Fatal("a block that doesn't extend the tip should be rejected")
	}
}

// buildChain mines a chain of the specified length on top of genesis,
// paying every coinbase to the address.
func buildChain(t *testing.T, addr string, blocks int) []database.Block {
	chain := []database.Block{database.GenesisBlock()}

	for i := 1; i <= blocks; i++ {
		prev := chain[len(chain)-1]
		block, err := database.POW(context.Background(), prev.Index+1, prev.Hash, uint64(time.Now().UnixMilli()),
			[]database.Tx{database.NewCoinbaseTx(addr, prev.Index+1)}, 0, func(string, ...any) {})
		ifErrFailNow(t, err)
		chain = append(chain, block)
	}

	return chain
}

func Test_ReplaceChain(t *testing.T) {
	st := newState(t, minerECDSA)

	// Local chain: genesis + 1 mined block.
	mined, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	// An equally long fork is not strictly heavier or longer: rejected.
	equal := buildChain(t, otherAddr, 1)
	if err := st.ReplaceChain(equal); !errors.Is(err, database.ErrWeakerChain) {
		t.Fatalf("expected ErrWeakerChain for the equal-length fork, got %v", err)
	}

	// A longer, heavier fork replaces the local chain.
	heavier := buildChain(t, otherAddr, 3)
	ifErrFailNow(t, st.ReplaceChain(heavier))

	if got := len(st.RetrieveChain()); got != 4 {
		t.Fatalf("chain should hold 4 blocks after the replacement, got %d", got)
	}

	// The losing chain's coinbase is gone from the set.
	if bal := st.RetrieveBalance(); bal != 0 {
		t.Fatalf("losing coinbase should no longer count, balance got %d", bal)
	}
	if _, found := st.QueryBlockByHash(mined.Hash); found {
		t.Fatal("losing block should no longer be on the chain")
	}
	if bal := st.QueryBalanceByAddress(otherAddr); bal != 150 {
		t.Fatalf("winning miner should hold 150, got %d", bal)
	}
}

func Test_MineTransactionBlock(t *testing.T) {
	st := newState(t, minerECDSA)

	otherKey, err := crypto.HexToECDSA(otherECDSA)
	ifErrFailNow(t, err)
	otherAddr := signature.Address(otherKey)

	if _, err := st.MineNewBlock(context.Background()); err != nil {
		ifErrFailNow(t, err)
	}

	block, err := st.MineTransactionBlock(context.Background(), otherAddr, 30)
	ifErrFailNow(t, err)

	if len(block.Transactions) != 2 {
		t.Fatalf("block should carry the coinbase and the payment, got %d transactions", len(block.Transactions))
	}
	if bal := st.QueryBalanceByAddress(otherAddr); bal != 30 {
		t.Fatalf("receiver balance should be 30, got %d", bal)
	}
}
