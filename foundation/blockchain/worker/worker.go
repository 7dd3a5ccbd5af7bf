// Package worker implements the background processes for the node: signal
// driven mining and transaction sharing.
package worker

import (
	"sync"

	"github.com/minicoin/minicoin/foundation/blockchain/database"
	"github.com/minicoin/minicoin/foundation/blockchain/state"
)

// maxTxShareRequests represents the max number of share transaction
// requests that can be queued before new requests are dropped.
const maxTxShareRequests = 100

// Worker manages the background workflows for the node.
type Worker struct {
	state       *state.State
	wg          sync.WaitGroup
	shut        chan struct{}
	startMining chan bool
	txSharing   chan database.Tx
	autoMine    bool
	evHandler   state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, autoMine bool, evHandler state.EventHandler) {
	w := Worker{
		state:       st,
		shut:        make(chan struct{}),
		startMining: make(chan bool, 1),
		txSharing:   make(chan database.Tx, maxTxShareRequests),
		autoMine:    autoMine,
		evHandler:   evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.shareTxOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	if !w.autoMine {
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalShareTx queues a transaction to be shared with the peers. If the
// queue is full the transaction is dropped; the pool rebroadcast on the
// next admission covers it.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
