// Package server provides the HTTP server for the RaceScreen dashboard and API.
//
// This package is internal to RaceScreen and handles all HTTP concerns:
//
//   - Dashboard serving: Renders the embedded HTML template at "/"
//   - REST API: JSON snapshots at "/api/state" and "/api/view"
//   - Pool selection: POST "/api/select?pool_id=N"
//   - Server-Sent Events: Real-time updates at "/api/sse"
//   - WebSocket: Real-time updates and pool selection at "/api/ws"
//
// Routing uses chi and every route is wrapped with CORS handling.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the racescreen library should not need to interact with this
// package directly. The server is started automatically by [racescreen.RaceScreen.Start].
package server
