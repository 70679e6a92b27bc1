// Package raceapi provides the HTTP client for the race pool service.
//
// This package is internal to RaceScreen and talks to the two read
// endpoints the view depends on:
//
//   - GET /race/getPools: the list of pools available for selection
//   - GET /race/getLeaderboard?pool_id={id}: standings for one pool
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts and size limits
//   - [Pool], [Driver], [StandingEntry]: wire types for the service payloads
//   - [LeaderboardResponse]: decoded leaderboard envelope
//
// The client decodes payloads and reports transport or parse problems as
// errors. Deciding what those errors mean for the view is left to the
// screen package.
package raceapi
