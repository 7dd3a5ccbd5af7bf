package database

// Genesis constants. Every node in the network must carry this block byte
// for byte or chains can never be exchanged.
const (
	genesisTimestamp = 1734667274522
	genesisTxID      = "e655f6a5f26dc9b4cac6e46f52336428287759cf81ef5ff10854f69d68f43fa3"
	genesisAddress   = "04bfcab8722991ae774db48f934ca79cfb7dd991229153b9f732ba5334aafcd8e7266e47076996b55a14bf9913ee3145ce0cfc1372ada8ada74bd287450313534a"
	genesisHash      = "45dcbece109d098f2764e371d20e29c5ef3dcc10d985c6bc8d563d1fbdc82d9e"
)

// GenesisBlock constructs the fixed first block of the chain. The stored
// hash is a literal constant, compared byte for byte and never recomputed.
func GenesisBlock() Block {
	return Block{
		Index:     0,
		Timestamp: genesisTimestamp,
		Transactions: []Tx{
			{
				ID: genesisTxID,
				TxIns: []TxIn{
					{TxOutID: "", TxOutIndex: 0, Signature: ""},
				},
				TxOuts: []TxOut{
					{Address: genesisAddress, Amount: CoinbaseAmount},
				},
			},
		},
		PrevHash:   "",
		Hash:       genesisHash,
		Difficulty: 0,
		Proof:      0,
	}
}

// GenesisUTXOSet returns the set of unspent outputs after the genesis block.
func GenesisUTXOSet() UTXOSet {
	set, err := ProcessTransactions(GenesisBlock().Transactions, UTXOSet{}, 0)
	if err != nil {

		// The genesis constants are fixed at compile time. If they stop
		// validating the binary is built wrong.
		panic(err)
	}

	return set
}
