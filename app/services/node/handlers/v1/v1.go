// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"
	"os"

	"github.com/minicoin/minicoin/app/services/node/handlers/v1/nodegrp"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
	"github.com/minicoin/minicoin/foundation/events"
	"github.com/minicoin/minicoin/foundation/web"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	State    *state.State
	Evts     *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	const version = "v1"

	ngh := nodegrp.Handlers{
		Shutdown: cfg.Shutdown,
		Log:      cfg.Log,
		State:    cfg.State,
		Evts:     cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/chain", ngh.Chain)
	app.Handle(http.MethodGet, version, "/chain/block/:hash", ngh.BlockByHash)
	app.Handle(http.MethodGet, version, "/chain/tx/:id", ngh.TransactionByID)
	app.Handle(http.MethodGet, version, "/utxos", ngh.UTXOs)
	app.Handle(http.MethodGet, version, "/utxos/self", ngh.OwnUTXOs)
	app.Handle(http.MethodGet, version, "/balance", ngh.Balance)
	app.Handle(http.MethodGet, version, "/address", ngh.Address)
	app.Handle(http.MethodGet, version, "/pool", ngh.Pool)
	app.Handle(http.MethodGet, version, "/peers", ngh.Peers)
	app.Handle(http.MethodPost, version, "/peers", ngh.AddPeer)
	app.Handle(http.MethodPost, version, "/mine", ngh.Mine)
	app.Handle(http.MethodPost, version, "/mine/raw", ngh.MineRaw)
	app.Handle(http.MethodPost, version, "/mine/tx", ngh.MineTransaction)
	app.Handle(http.MethodPost, version, "/tx", ngh.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/stop", ngh.Stop)
	app.Handle(http.MethodGet, version, "/events", ngh.Events)
}
