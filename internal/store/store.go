package store

import (
	"time"

	"github.com/jpalmerr/racescreen/internal/screen"
)

// Snapshot is one published screen state.
type Snapshot struct {
	// Version increases by one with every update, starting at 1.
	// Zero means nothing has been published yet.
	Version uint64

	// PublishedAt is when the store received the state.
	PublishedAt time.Time

	// State is a private copy of the screen state.
	State screen.State
}

// Store defines the interface for storing and subscribing to screen states.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a new state, notifies all subscribers, and returns the
	// resulting snapshot.
	Update(state screen.State) Snapshot

	// Latest returns the most recent snapshot.
	Latest() Snapshot

	// Subscribe returns a channel that receives snapshots.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
