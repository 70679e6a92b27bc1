// Package store keeps the latest screen state and fans it out to subscribers.
//
// This package is internal to RaceScreen. The screen goroutine publishes a
// state after every transition; the dashboard server reads the latest one
// for page renders and streams new ones to SSE and WebSocket clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: A versioned copy of the screen state
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss intermediate snapshots rather than block the screen).
// Every snapshot is a full state, so a dropped one is repaired by the next.
package store
