// Package mpdconn is the Connection Manager: a dual-client pattern
// maintaining two TCP connections to the same MPD-protocol daemon
// (spec.md §4.1). It is grounded on two real-world patterns from the
// retrieval pack: a reusable synchronous client (teacher-adjacent
// "withConn" style seen in the pack's MPD reference files) for the
// foreground, and github.com/fhs/gompd/v2/mpd's Idle/Subscribe/
// SendMessage primitives — the same library the pack's trollibox and
// supersonic reference files use — for the background client.
package mpdconn

import "sync"

// ConnectionState is the state machine described in spec.md §4.1:
// NotConnected -> Connecting -> (Connected | Unauthenticated | NotConnected).
type ConnectionState int

const (
	NotConnected ConnectionState = iota
	Connecting
	Connected
	Unauthenticated
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Unauthenticated:
		return "Unauthenticated"
	default:
		return "NotConnected"
	}
}

// ClientState is the observable object the UI subscribes to: connection
// state, busy flag, and is itself published on eventbus.TopicConnectionState
// whenever either changes.
type ClientState struct {
	mu    sync.Mutex
	state ConnectionState
	busy  bool
}

// Snapshot is an immutable copy of ClientState for publishing on the bus.
type Snapshot struct {
	State ConnectionState
	Busy  bool
}

func newClientState() *ClientState {
	return &ClientState{state: NotConnected}
}

func (c *ClientState) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Busy: c.busy}
}

func (c *ClientState) setState(s ConnectionState) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == s {
		return Snapshot{State: c.state, Busy: c.busy}, false
	}
	c.state = s
	return Snapshot{State: c.state, Busy: c.busy}, true
}

// setBusy transitions the busy flag exactly once per change (spec.md
// §4.1: "set busy=true (once per transition)").
func (c *ClientState) setBusy(busy bool) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy == busy {
		return Snapshot{State: c.state, Busy: c.busy}, false
	}
	c.busy = busy
	return Snapshot{State: c.state, Busy: c.busy}, true
}
