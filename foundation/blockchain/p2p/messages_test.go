package p2p

import (
	"encoding/json"
	"testing"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

func Test_EnvelopeWireFormat(t *testing.T) {

	// Payload-free queries carry a null data field.
	frame, err := encodeFrame(newQuery(QueryLatest))
	if err != nil {
		t.Fatalf("encoding query: %s", err)
	}
	if string(frame) != `{"type":0,"data":null}` {
		t.Fatalf("unexpected query frame: %s", frame)
	}

	// Payload messages double-encode the document into the data string.
	msg, err := newBlockchainResponse([]database.Block{database.GenesisBlock()})
	if err != nil {
		t.Fatalf("building response: %s", err)
	}
	if msg.Type != ResponseBlockchain {
		t.Fatalf("unexpected message type %d", msg.Type)
	}

	frame, err = encodeFrame(msg)
	if err != nil {
		t.Fatalf("encoding response: %s", err)
	}

	var envelope struct {
		Type int     `json:"type"`
		Data *string `json:"data"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		t.Fatalf("decoding envelope: %s", err)
	}
	if envelope.Type != 2 || envelope.Data == nil {
		t.Fatal("response frame should carry type 2 and a data string")
	}

	var blocks []database.Block
	if err := json.Unmarshal([]byte(*envelope.Data), &blocks); err != nil {
		t.Fatalf("the data field should hold JSON encoded blocks: %s", err)
	}
	if len(blocks) != 1 || blocks[0].Hash != database.GenesisBlock().Hash {
		t.Fatal("decoded blocks should round trip the genesis block")
	}
}

func Test_EnvelopeRoundTrip(t *testing.T) {
	original, err := newPoolResponse([]database.Tx{database.GenesisBlock().Transactions[0]})
	if err != nil {
		t.Fatalf("building pool response: %s", err)
	}

	frame, err := encodeFrame(original)
	if err != nil {
		t.Fatalf("encoding: %s", err)
	}

	msg, err := decodeMessage(frame)
	if err != nil {
		t.Fatalf("decoding: %s", err)
	}
	if msg.Type != ResponseTransactionPool {
		t.Fatalf("unexpected type %d", msg.Type)
	}

	txs, err := decodeTxs(msg)
	if err != nil {
		t.Fatalf("decoding txs: %s", err)
	}
	if len(txs) != 1 || txs[0].ID != database.GenesisBlock().Transactions[0].ID {
		t.Fatal("pool response should round trip the transaction")
	}

	// A query with no data refuses payload decoding.
	if _, err := decodeTxs(newQuery(QueryTransactionPool)); err == nil {
		t.Fatal("decoding a payload from a payload-free message should fail")
	}
}
