package nodegrp

import (
	"github.com/minicoin/minicoin/business/sys/validate"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
)

// sendTx is what a client submits to pay an address.
type sendTx struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required,gt=0"`
}

// Validate checks the payload carries the required fields.
func (st sendTx) Validate() error {
	return validate.Check(st)
}

// mineRaw carries a caller supplied transaction list to mine as a block.
type mineRaw struct {
	Transactions []database.Tx `json:"transactions" validate:"required,min=1"`
}

// Validate checks the payload carries the required fields.
func (mr mineRaw) Validate() error {
	return validate.Check(mr)
}

// addPeer names a peer to dial.
type addPeer struct {
	Peer string `json:"peer" validate:"required"`
}

// Validate checks the payload carries the required fields.
func (ap addPeer) Validate() error {
	return validate.Check(ap)
}

// =============================================================================

// balance is the response form for balance queries.
type balance struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// address is the response form for the node's own address.
type address struct {
	Address string `json:"address"`
}

// ack is the response form for commands with nothing else to say.
type ack struct {
	Status string `json:"status"`
}
