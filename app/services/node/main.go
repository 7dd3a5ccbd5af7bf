package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/minicoin/minicoin/app/services/node/handlers"
	"github.com/minicoin/minicoin/foundation/blockchain/p2p"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
	"github.com/minicoin/minicoin/foundation/blockchain/wallet"
	"github.com/minicoin/minicoin/foundation/blockchain/worker"
	"github.com/minicoin/minicoin/foundation/events"
	"github.com/minicoin/minicoin/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It can be set at build time with -ldflags "-X main.build=...".
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:120s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:4000"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
		}
		Node struct {
			P2PHost    string   `conf:"default:0.0.0.0:5000"`
			WalletFile string   `conf:"default:wallet/private_key"`
			KnownPeers []string `conf:"default:"`
			AutoMine   bool     `conf:"default:false"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(` __  __ ___ _   _ ___ ____ ___ ___ _   _ `)
	fmt.Println(`|  \/  |_ _| \ | |_ _/ ___/ _ \_ _| \ | |`)
	fmt.Println(`| |\/| || ||  \| || | |  | | | | ||  \| |`)
	fmt.Println(`| |  | || || |\  || | |__| |_| | || |\  |`)
	fmt.Println(`|_|  |_|___|_| \_|___\____\___/___|_| \_|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	// Load the wallet private key. The mined coinbase rewards are paid to
	// the address derived from this key. A fresh install gets a new key.
	privateKey, err := wallet.LoadOrCreate(cfg.Node.WalletFile)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow
	// the application to log. These raw messages are also sent to any
	// websocket client connected through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Publish(s)
	}

	// The state value represents the blockchain node and provides an API
	// for application support.
	st, err := state.New(state.Config{
		PrivateKey: privateKey,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	log.Infow("startup", "status", "node address", "address", st.RetrieveAddress())

	// The worker package implements the background workflows such as
	// mining and transaction peer sharing. The worker registers itself
	// with the state.
	worker.Run(st, cfg.Node.AutoMine, ev)

	// The p2p package implements the gossip protocol. The server registers
	// itself with the state and starts the peer listener.
	if _, err := p2p.Run(p2p.Config{
		State:     st,
		Host:      cfg.Node.P2PHost,
		EvHandler: ev,
	}); err != nil {
		return fmt.Errorf("starting peer listener: %w", err)
	}

	// Dial any peers the configuration names. Failures are logged, the
	// node still starts.
	for _, host := range cfg.Node.KnownPeers {
		if host == "" {
			continue
		}
		if err := st.ConnectPeer(host); err != nil {
			log.Infow("startup", "status", "peer connect failed", "host", host, "ERROR", err)
		}
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the
	// debug related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Construct the mux for the API calls.
	apiMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown API started")
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop api service gracefully: %w", err)
		}
	}

	return nil
}
