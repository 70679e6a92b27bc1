// Package racescreen provides a live, embeddable view of motorsport pool
// standings.
//
// RaceScreen is designed as an SDK-first library. It reads a race pool
// service that exposes two JSON endpoints, keeps a single view-state record
// for the selected pool, and publishes every change to a web dashboard, a
// terminal renderer, or user callbacks.
//
// # Quick Start
//
// Point a screen at the service and start it with graceful shutdown:
//
//	rs, _ := racescreen.New(racescreen.WithBaseURL("https://pools.example.com"))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	rs.Start(ctx) // blocks until context is cancelled
//
// # Behaviour
//
// On start the pool list is fetched once from /race/getPools and the first
// pool is selected. The selected pool's standings are fetched from
// /race/getLeaderboard?pool_id=N immediately and then every polling interval
// (30 seconds by default). Selecting another pool with [RaceScreen.Select]
// stops the old timer, fetches the new pool at once and starts a new timer.
// Responses that arrive for a pool that is no longer selected are dropped.
//
// A response with success false, or without a standings array, clears the
// standings and shows the service message (or "Leaderboard is not
// available."). A transport or decode failure clears the standings and shows
// "Failed to fetch leaderboard." while keeping the previous timestamp.
// Neither kind of failure changes the schedule.
//
// # Configuration
//
// RaceScreen uses the functional options pattern for configuration:
//
//	src, err := racescreen.NewSource("https://pools.example.com",
//	    racescreen.WithHeaders("Authorization", "Bearer token"),
//	    racescreen.WithTimeout(5 * time.Second),
//	)
//
//	rs, err := racescreen.New(
//	    racescreen.WithSource(src),
//	    racescreen.WithPollingInterval(10 * time.Second),
//	    racescreen.WithPort(9090),
//	    racescreen.WithTitle("Office Indy 500 Pool"),
//	)
//
// # Architecture
//
// RaceScreen consists of several internal packages (under internal/):
//
//   - internal/raceapi: HTTP client for the race pool service
//   - internal/screen: State record and the single-goroutine poll controller
//   - internal/view: Pure state-to-view rendering and terminal text output
//   - internal/store: In-memory snapshot storage with pub/sub
//   - internal/server: Dashboard, JSON API, Server-Sent Events and WebSocket
//   - dashboard: Embedded HTML template
//
// The internal packages are not part of the public API and may change
// without notice.
package racescreen
