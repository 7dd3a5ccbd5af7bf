// Package peer maintains the set of connected peer sessions and the
// websocket plumbing each session needs.
package peer

import (
	"sync"

	"github.com/gorilla/websocket"
)

// sendBuffer bounds the outbound queue per peer. A frame sent to a full
// queue is dropped rather than blocking the broadcaster.
const sendBuffer = 64

// Peer represents one live websocket session with another node.
type Peer struct {
	conn *websocket.Conn
	host string
	send chan []byte
	once sync.Once
	done chan struct{}
}

// New constructs a peer around an established websocket connection.
func New(conn *websocket.Conn) *Peer {
	return &Peer{
		conn: conn,
		host: conn.RemoteAddr().String(),
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Host returns the remote host:port for this session.
func (p *Peer) Host() string {
	return p.host
}

// Send enqueues a frame for delivery. It reports false when the peer's
// queue is full or the session is closed; the caller logs and moves on.
func (p *Peer) Send(frame []byte) bool {
	select {
	case <-p.done:
		return false
	case p.send <- frame:
		return true
	default:
		return false
	}
}

// ReadFrame blocks until the next frame arrives from the peer.
func (p *Peer) ReadFrame() ([]byte, error) {
	_, frame, err := p.conn.ReadMessage()
	return frame, err
}

// WritePump drains the outbound queue onto the connection. It returns when
// the session closes or a write fails. Within a session, frames go out in
// enqueue order.
func (p *Peer) WritePump() {
	for {
		select {
		case <-p.done:
			return
		case frame := <-p.send:
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.Close()
				return
			}
		}
	}
}

// Close terminates the session. Safe to call more than once.
func (p *Peer) Close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// =============================================================================

// PeerSet represents the data representation to maintain the set of
// connected peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[*Peer]struct{}
}

// NewPeerSet constructs a new set to manage peer sessions.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[*Peer]struct{}),
	}
}

// Add adds a new peer to the set.
func (ps *PeerSet) Add(p *Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.set[p] = struct{}{}
}

// Remove removes a peer from the set and closes its session.
func (ps *PeerSet) Remove(p *Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, p)
	p.Close()
}

// Copy returns the current list of peers.
func (ps *PeerSet) Copy() []*Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]*Peer, 0, len(ps.set))
	for p := range ps.set {
		peers = append(peers, p)
	}

	return peers
}

// Hosts returns the remote host:port of every connected peer.
func (ps *PeerSet) Hosts() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	hosts := make([]string, 0, len(ps.set))
	for p := range ps.set {
		hosts = append(hosts, p.host)
	}

	return hosts
}

// Shutdown closes every session and empties the set.
func (ps *PeerSet) Shutdown() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for p := range ps.set {
		delete(ps.set, p)
		p.Close()
	}
}
