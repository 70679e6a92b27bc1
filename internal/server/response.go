package server

import (
	"time"

	"github.com/jpalmerr/racescreen/internal/raceapi"
	"github.com/jpalmerr/racescreen/internal/store"
	"github.com/jpalmerr/racescreen/internal/view"
)

// stateResponse is the JSON form of a store snapshot shared by /api/state,
// SSE and WebSocket messages.
type stateResponse struct {
	Version        uint64                  `json:"version"`
	PublishedAt    time.Time               `json:"published_at"`
	Pools          []raceapi.Pool          `json:"pools"`
	SelectedPoolID *int                    `json:"selected_pool_id"`
	Standings      []raceapi.StandingEntry `json:"standings"`
	Error          string                  `json:"error,omitempty"`
	UpdatedAt      string                  `json:"updated_at"`
	Phase          string                  `json:"phase"`
	Outcome        string                  `json:"outcome"`
	Fetches        int                     `json:"fetches"`
}

// viewResponse wraps a rendered view with the snapshot version it came from.
type viewResponse struct {
	Version uint64 `json:"version"`
	view.View
}

// selectResponse acknowledges an accepted selection.
type selectResponse struct {
	PoolID int    `json:"pool_id"`
	Status string `json:"status"`
}

// errorResponse is returned for rejected API requests.
type errorResponse struct {
	Error string `json:"error"`
}

func newStateResponse(snap store.Snapshot) stateResponse {
	st := snap.State

	resp := stateResponse{
		Version:     snap.Version,
		PublishedAt: snap.PublishedAt,
		Pools:       st.Pools,
		Standings:   st.Standings,
		Error:       st.Error,
		UpdatedAt:   st.UpdatedAt,
		Phase:       st.Phase.String(),
		Outcome:     st.Outcome.String(),
		Fetches:     st.Fetches,
	}
	if id, ok := st.SelectedID(); ok {
		resp.SelectedPoolID = &id
	}

	// encode empty collections as [] rather than null
	if resp.Pools == nil {
		resp.Pools = []raceapi.Pool{}
	}
	if resp.Standings == nil {
		resp.Standings = []raceapi.StandingEntry{}
	}
	return resp
}
