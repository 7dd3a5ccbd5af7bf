package state

// NetBroadcastLatestBlock shares the newest block with every connected
// peer. A nil gossip registration makes this a no-op so the state can run
// without networking, as it does under test.
func (s *State) NetBroadcastLatestBlock() {
	if s.gossip == nil {
		return
	}

	s.gossip.BroadcastLatestBlock()
}

// NetBroadcastPool shares the pending transactions with every connected
// peer.
func (s *State) NetBroadcastPool() {
	if s.gossip == nil {
		return
	}

	s.gossip.BroadcastPool()
}
