// Package events supports the fan-out of node narration to any client that
// subscribes, such as websocket viewers.
package events

import (
	"fmt"
	"sync"
)

// subscriberBuffer gives a slow subscriber room before messages are
// dropped. A websocket write can take a while.
const subscriberBuffer = 100

// Events maintains the set of subscriber channels keyed by a unique id.
type Events struct {
	mu   sync.RWMutex
	subs map[string]chan string
}

// New constructs an Events value for subscribing and publishing.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Subscribe registers the specified id and returns the channel the
// subscriber receives messages on.
func (evt *Events) Subscribe(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch

	return ch
}

// Unsubscribe closes and removes the channel registered under the
// specified id.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("id %q is not subscribed", id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Publish delivers the message to every subscriber without blocking. A
// subscriber with a full buffer misses the message.
func (evt *Events) Publish(msg string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Shutdown closes and removes every subscriber channel.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}
