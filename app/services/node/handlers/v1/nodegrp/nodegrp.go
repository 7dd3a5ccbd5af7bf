// Package nodegrp maintains the group of handlers for node access.
package nodegrp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	v1 "github.com/minicoin/minicoin/business/web/v1"
	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
	"github.com/minicoin/minicoin/foundation/events"
	"github.com/minicoin/minicoin/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	Evts     *events.Events
	WS       websocket.Upgrader
}

// =============================================================================
// Chain queries

// Chain returns the full chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// BlockByHash returns the block with the specified hash, or null.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	block, found := h.State.QueryBlockByHash(hash)
	if !found {
		return web.Respond(ctx, w, nil, http.StatusOK)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// TransactionByID returns the chain transaction with the specified id,
// or null.
func (h Handlers) TransactionByID(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	tx, found := h.State.QueryTransactionByID(id)
	if !found {
		return web.Respond(ctx, w, nil, http.StatusOK)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// UTXOs returns the full set of unspent outputs.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveUTXOSet(), http.StatusOK)
}

// OwnUTXOs returns the unspent outputs owned by this node.
func (h Handlers) OwnUTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveOwnUTXOs(), http.StatusOK)
}

// Balance returns the balance of this node's address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	bal := balance{
		Address: h.State.RetrieveAddress(),
		Balance: h.State.RetrieveBalance(),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Address returns this node's own address.
func (h Handlers) Address(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, address{Address: h.State.RetrieveAddress()}, http.StatusOK)
}

// Pool returns the pending transactions in the pool.
func (h Handlers) Pool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}

// =============================================================================
// Peers

// Peers returns the host:port of every connected peer.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hosts := h.State.RetrieveKnownPeers()
	if hosts == nil {
		hosts = []string{}
	}

	return web.Respond(ctx, w, hosts, http.StatusOK)
}

// AddPeer dials a new peer and adds the session to the peer set.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ap addPeer
	if err := web.Decode(r, &ap); err != nil {
		return err
	}

	if err := h.State.ConnectPeer(ap.Peer); err != nil {
		return v1.NewRequestError(err, http.StatusInternalServerError)
	}

	return web.Respond(ctx, w, ack{Status: "peer connected"}, http.StatusOK)
}

// =============================================================================
// Mining and transactions

// Mine drains the pool into a new block behind a fresh coinbase.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(ctx)
	if err != nil {
		return v1.NewRequestError(err, http.StatusInternalServerError)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MineRaw mines a block over a caller supplied transaction list.
func (h Handlers) MineRaw(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var mr mineRaw
	if err := web.Decode(r, &mr); err != nil {
		return err
	}

	block, err := h.State.MineRawBlock(ctx, mr.Transactions)
	if err != nil {
		return v1.NewRequestError(err, http.StatusInternalServerError)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MineTransaction builds a spend transaction and mines a block carrying it.
func (h Handlers) MineTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var st sendTx
	if err := web.Decode(r, &st); err != nil {
		return err
	}

	block, err := h.State.MineTransactionBlock(ctx, st.Address, st.Amount)
	if err != nil {
		return v1.NewRequestError(err, statusForWalletError(err))
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// SubmitTransaction builds, signs and admits a transaction to the pool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var st sendTx
	if err := web.Decode(r, &st); err != nil {
		return err
	}

	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}
	h.Log.Infow("submit transaction", "traceid", v.TraceID, "to", st.Address, "amount", st.Amount)

	tx, err := h.State.SubmitTransaction(st.Address, st.Amount)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// Stop terminates the node through the graceful shutdown path.
func (h Handlers) Stop(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := web.Respond(ctx, w, ack{Status: "stopping"}, http.StatusOK)

	h.Shutdown <- syscall.SIGTERM

	return resp
}

// =============================================================================

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Subscribe(v.TraceID)
	defer h.Evts.Unsubscribe(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

// statusForWalletError distinguishes caller faults from mining faults.
func statusForWalletError(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, database.ErrConservation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
