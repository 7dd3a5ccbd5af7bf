package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/minicoin/minicoin/foundation/blockchain/signature"
)

// BlockGenerationInterval is the target number of seconds between blocks.
const BlockGenerationInterval = 10

// DifficultyAdjustmentInterval is the number of blocks between difficulty
// recalculations.
const DifficultyAdjustmentInterval = 10

// TimestampTolerance is the clock skew, in milliseconds, accepted on both
// sides of a block's timestamp.
const TimestampTolerance = 60_000

// Set of errors for block validation failures.
var (
	ErrBadStructure = errors.New("invalid block structure")
	ErrBadLinkage   = errors.New("block does not extend the chain")
	ErrBadTimestamp = errors.New("block timestamp out of bounds")
	ErrBadPoW       = errors.New("block hash does not satisfy the proof of work")
	ErrWeakerChain  = errors.New("candidate chain is not strictly heavier and longer")
)

// =============================================================================

// Block represents a group of transactions bound to the chain by proof
// of work.
type Block struct {
	Index        uint64 `json:"index"`
	Timestamp    uint64 `json:"timestamp"`
	Transactions []Tx   `json:"transactions"`
	PrevHash     string `json:"previousHash"`
	Hash         string `json:"hash"`
	Difficulty   uint32 `json:"difficulty"`
	Proof        uint64 `json:"proof"`
}

// hashBlock computes the block hash over the header fields and the
// transaction list. Transactions contribute through their ids, which bind
// every output reference and output but not the signatures.
func hashBlock(index uint64, prevHash string, timestamp uint64, txs []Tx, difficulty uint32, proof uint64) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%d%s%d", index, prevHash, timestamp)
	for _, tx := range txs {
		sb.WriteString(tx.ID)
	}
	fmt.Fprintf(&sb, "%d%d", difficulty, proof)

	return signature.Hash(sb.String())
}

// ComputeHash recomputes the hash for the block from its other fields.
func (b Block) ComputeHash() string {
	return hashBlock(b.Index, b.PrevHash, b.Timestamp, b.Transactions, b.Difficulty, b.Proof)
}

// HashMatchesDifficulty reports whether the binary expansion of the hash
// begins with the required number of zero bits.
func HashMatchesDifficulty(hash string, difficulty uint32) bool {
	binary, err := signature.HexToBinary(hash)
	if err != nil {
		return false
	}

	if uint32(len(binary)) < difficulty {
		return false
	}

	return strings.HasPrefix(binary, strings.Repeat("0", int(difficulty)))
}

// =============================================================================

// POW constructs the next block by iterating the proof counter from zero
// until the block hash satisfies the difficulty. The search checks for
// cancellation between iterations.
func POW(ctx context.Context, index uint64, prevHash string, timestamp uint64, txs []Tx, difficulty uint32, ev func(v string, args ...any)) (Block, error) {
	ev("database: POW: MINING: started: blk[%d] difficulty[%d]", index, difficulty)
	defer ev("database: POW: MINING: completed: blk[%d]", index)

	for proof := uint64(0); ; proof++ {
		if proof%1_000_000 == 0 && proof != 0 {
			ev("database: POW: MINING: attempts[%d]", proof)
		}

		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return Block{}, ctx.Err()
		}

		hash := hashBlock(index, prevHash, timestamp, txs, difficulty, proof)
		if !HashMatchesDifficulty(hash, difficulty) {
			continue
		}

		return Block{
			Index:        index,
			Timestamp:    timestamp,
			Transactions: txs,
			PrevHash:     prevHash,
			Hash:         hash,
			Difficulty:   difficulty,
			Proof:        proof,
		}, nil
	}
}

// =============================================================================

// ValidateStructure checks the block carries the fields every block
// must have.
func (b Block) ValidateStructure() error {
	if b.Hash == "" {
		return fmt.Errorf("%w: missing hash", ErrBadStructure)
	}

	if len(b.Transactions) == 0 {
		return fmt.Errorf("%w: no transactions", ErrBadStructure)
	}

	return nil
}

// ValidateTimestamp checks the block's timestamp sits within the tolerance
// of both the parent block and the local wall clock, in milliseconds.
func (b Block) ValidateTimestamp(prev Block, nowMS uint64) error {
	if prev.Timestamp >= b.Timestamp+TimestampTolerance {
		return fmt.Errorf("%w: block %d not after parent %d", ErrBadTimestamp, b.Timestamp, prev.Timestamp)
	}

	if b.Timestamp >= nowMS+TimestampTolerance {
		return fmt.Errorf("%w: block %d too far ahead of wall clock %d", ErrBadTimestamp, b.Timestamp, nowMS)
	}

	return nil
}

// ValidateNextBlock checks the header of a block against its parent. The
// transaction semantics are checked separately by ProcessTransactions.
func (b Block) ValidateNextBlock(prev Block, nowMS uint64) error {
	if err := b.ValidateStructure(); err != nil {
		return err
	}

	if b.Index != prev.Index+1 {
		return fmt.Errorf("%w: index %d is not %d", ErrBadLinkage, b.Index, prev.Index+1)
	}

	if b.PrevHash != prev.Hash {
		return fmt.Errorf("%w: previous hash %s does not match parent %s", ErrBadLinkage, b.PrevHash, prev.Hash)
	}

	if err := b.ValidateTimestamp(prev, nowMS); err != nil {
		return err
	}

	if b.Hash != b.ComputeHash() {
		return fmt.Errorf("%w: stated hash %s does not match computed %s", ErrBadPoW, b.Hash, b.ComputeHash())
	}

	if !HashMatchesDifficulty(b.Hash, b.Difficulty) {
		return fmt.Errorf("%w: hash %s lacks %d leading zero bits", ErrBadPoW, b.Hash, b.Difficulty)
	}

	return nil
}

// =============================================================================

// NextDifficulty returns the difficulty required for the block that extends
// the specified chain. Every DifficultyAdjustmentInterval blocks the
// difficulty is recomputed from the time the last interval took.
func NextDifficulty(chain []Block) uint32 {
	latest := chain[len(chain)-1]

	if latest.Index%DifficultyAdjustmentInterval != 0 || latest.Index == 0 {
		return latest.Difficulty
	}

	adjBlock := chain[latest.Index-DifficultyAdjustmentInterval]

	const expected = BlockGenerationInterval * DifficultyAdjustmentInterval
	taken := int64(latest.Timestamp/1000) - int64(adjBlock.Timestamp/1000)

	switch {
	case taken < expected/2:
		return adjBlock.Difficulty + 1
	case taken > expected*2:
		if adjBlock.Difficulty == 0 {
			return 0
		}
		return adjBlock.Difficulty - 1
	default:
		return adjBlock.Difficulty
	}
}

// ChainWeight sums 2^difficulty across the chain. The weight orders
// competing chains for fork choice.
func ChainWeight(chain []Block) *big.Int {
	weight := big.NewInt(0)
	for _, b := range chain {
		weight.Add(weight, new(big.Int).Lsh(big.NewInt(1), uint(b.Difficulty)))
	}

	return weight
}

// =============================================================================

// ValidateChain replays a candidate chain from an empty set of unspent
// outputs. The first block must be byte identical to the genesis block.
// On success the derived set of unspent outputs is returned.
func ValidateChain(chain []Block, nowMS uint64) (UTXOSet, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: empty chain", ErrBadStructure)
	}

	candidate, err := json.Marshal(chain[0])
	if err != nil {
		return nil, err
	}
	local, err := json.Marshal(GenesisBlock())
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(candidate, local) {
		return nil, fmt.Errorf("%w: first block is not the genesis block", ErrBadLinkage)
	}

	set, err := ProcessTransactions(chain[0].Transactions, UTXOSet{}, 0)
	if err != nil {
		return nil, fmt.Errorf("genesis transactions: %w", err)
	}

	for i := 1; i < len(chain); i++ {
		if err := chain[i].ValidateNextBlock(chain[i-1], nowMS); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}

		if expected := NextDifficulty(chain[:i]); chain[i].Difficulty != expected {
			return nil, fmt.Errorf("block %d: %w: difficulty %d, retarget requires %d", i, ErrBadPoW, chain[i].Difficulty, expected)
		}

		set, err = ProcessTransactions(chain[i].Transactions, set, chain[i].Index)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}

	return set, nil
}
