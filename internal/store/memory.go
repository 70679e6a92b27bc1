package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/racescreen/internal/screen"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps only the latest snapshot. Subscribers receive updates
// via buffered channels; if a subscriber's buffer is full, the update is
// dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	latest      Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
		now:         time.Now,
	}
}

// Update stores state as the latest snapshot and notifies all subscribers.
func (m *MemoryStore) Update(state screen.State) Snapshot {
	m.mu.Lock()
	snap := Snapshot{
		Version:     m.latest.Version + 1,
		PublishedAt: m.now(),
		State:       state.Clone(),
	}
	m.latest = snap
	m.mu.Unlock()

	m.notifySubscribers(snap)
	return snap
}

// Latest returns a copy of the most recent snapshot.
func (m *MemoryStore) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.latest
	snap.State = snap.State.Clone()
	return snap
}

// Subscribe creates a new subscription and returns a channel for receiving
// snapshots.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the snapshot to all active subscribers without
// blocking. Each subscriber gets its own copy of the state.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		cp := snap
		cp.State = snap.State.Clone()
		select {
		case ch <- cp:
		default:
			// subscriber is slow, drop the message
		}
	}
}
