package worker

// shareTxOperations handles sharing new transactions with the peers.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.evHandler("worker: shareTxOperations: sharing tx[%s]", tx.ID)
				w.state.NetBroadcastPool()
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}
