package probe

import "sync"

// BroadcastFunc sends a single binary frame to every connected live
// subscriber. It is supplied by the WebSocket transport (an external
// collaborator per spec §1); the Broadcaster itself does not buffer — if a
// subscriber is slow, the transport decides whether to drop.
type BroadcastFunc func(frame []byte) error

// Broadcaster is a process-wide handle wrapping an optional broadcast
// sender. It may be "not yet initialized" if the transport is still coming
// up.
type Broadcaster struct {
	mu     sync.Mutex
	sender BroadcastFunc
}

// NewBroadcaster returns a Broadcaster with no sender registered.
func NewBroadcaster() *Broadcaster { return &Broadcaster{} }

// Update replaces the wrapped sender, e.g. whenever the WS transport
// restarts. A nil sender reverts to the "not yet initialized" state.
func (b *Broadcaster) Update(sender BroadcastFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = sender
}

// Send delegates frame to the current sender, or returns ErrSocketNotAvail
// if none is registered.
func (b *Broadcaster) Send(frame []byte) error {
	b.mu.Lock()
	sender := b.sender
	b.mu.Unlock()

	if sender == nil {
		return ErrSocketNotAvail
	}
	return sender(frame)
}
