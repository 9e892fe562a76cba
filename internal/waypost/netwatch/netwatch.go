// Package netwatch tracks network reachability for the telemetry pipeline.
// The queue manager consults it before attempting delivery and subscribes to
// transitions to drain retry queues when connectivity returns.
package netwatch

import "sync"

// Monitor exposes the current online/offline state and transition
// notifications.
type Monitor interface {
	// IsOnline reports the last observed reachability state.
	IsOnline() bool
	// Subscribe registers fn to be called on every state transition. The
	// returned function removes the subscription.
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// Manual is a Monitor whose state is set by the caller. It backs the probe
// monitor and stands in for the host platform's connectivity signal in tests
// and embedded deployments.
type Manual struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

// NewManual creates a Manual monitor with the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{
		online: online,
		subs:   make(map[int]func(online bool)),
	}
}

// IsOnline reports the current state.
func (m *Manual) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline updates the state and notifies subscribers on transitions.
// Setting the same state twice is a no-op.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	// Notify outside the lock so subscribers may call back into the monitor.
	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe registers a transition callback.
func (m *Manual) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}
