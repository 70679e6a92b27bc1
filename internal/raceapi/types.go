package raceapi

import (
	"bytes"
	"encoding/json"
)

// Pool is a named group of participants whose entries are ranked together.
type Pool struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

// Driver is a single car assigned to a participant.
type Driver struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	Position int    `json:"position"`
}

// StandingEntry is one participant's aggregated ranking within a pool.
//
// Entries arrive already rank-ordered by the service.
type StandingEntry struct {
	Name            string   `json:"name"`
	AveragePosition float64  `json:"average_position"`
	Drivers         []Driver `json:"drivers"`
}

// LeaderboardResponse is the decoded /race/getLeaderboard envelope.
type LeaderboardResponse struct {
	// Success mirrors the service's success flag.
	Success bool

	// Standings holds the decoded entries when HasStandings is true.
	Standings []StandingEntry

	// HasStandings reports whether the payload carried a standings array.
	// A missing field, null, or any non-array value leaves it false.
	HasStandings bool

	// UpdatedAt is the service timestamp, passed through verbatim.
	UpdatedAt string

	// Message is the optional explanation sent with a failed response.
	Message string
}

// leaderboardWire keeps standings raw so a non-array value can be told
// apart from a decode error.
type leaderboardWire struct {
	Success   bool            `json:"success"`
	Standings json.RawMessage `json:"standings"`
	UpdatedAt string          `json:"updatedAt"`
	Message   string          `json:"message"`
}

// isJSONArray reports whether raw holds a JSON array.
func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
