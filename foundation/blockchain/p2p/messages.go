package p2p

import (
	"encoding/json"
	"fmt"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// MessageType identifies the meaning of a frame's data field.
type MessageType int

// The five message types of the gossip protocol.
const (
	QueryLatest MessageType = iota
	QueryAll
	ResponseBlockchain
	QueryTransactionPool
	ResponseTransactionPool
)

// Message is the wire envelope. For payload carrying types the data field
// holds a JSON document encoded as a JSON string, preserving the wire
// format other nodes expect.
type Message struct {
	Type MessageType `json:"type"`
	Data *string     `json:"data"`
}

// =============================================================================

// newQuery constructs a payload-free message of the specified type.
func newQuery(t MessageType) Message {
	return Message{Type: t}
}

// newBlockchainResponse wraps a list of blocks in a ResponseBlockchain
// message.
func newBlockchainResponse(blocks []database.Block) (Message, error) {
	data, err := json.Marshal(blocks)
	if err != nil {
		return Message{}, fmt.Errorf("encoding blocks: %w", err)
	}

	s := string(data)
	return Message{Type: ResponseBlockchain, Data: &s}, nil
}

// newPoolResponse wraps a list of transactions in a ResponseTransactionPool
// message.
func newPoolResponse(txs []database.Tx) (Message, error) {
	data, err := json.Marshal(txs)
	if err != nil {
		return Message{}, fmt.Errorf("encoding transactions: %w", err)
	}

	s := string(data)
	return Message{Type: ResponseTransactionPool, Data: &s}, nil
}

// =============================================================================

// decodeMessage parses a frame into a message envelope.
func decodeMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}

	return msg, nil
}

// decodeBlocks parses the data field of a ResponseBlockchain message.
func decodeBlocks(msg Message) ([]database.Block, error) {
	if msg.Data == nil {
		return nil, fmt.Errorf("message carries no data")
	}

	var blocks []database.Block
	if err := json.Unmarshal([]byte(*msg.Data), &blocks); err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}

	return blocks, nil
}

// decodeTxs parses the data field of a ResponseTransactionPool message.
func decodeTxs(msg Message) ([]database.Tx, error) {
	if msg.Data == nil {
		return nil, fmt.Errorf("message carries no data")
	}

	var txs []database.Tx
	if err := json.Unmarshal([]byte(*msg.Data), &txs); err != nil {
		return nil, fmt.Errorf("decoding transactions: %w", err)
	}

	return txs, nil
}

// encodeFrame renders a message for the wire.
func encodeFrame(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
