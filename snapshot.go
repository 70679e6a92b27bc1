package racescreen

import (
	"io"
	"time"

	"github.com/jpalmerr/racescreen/internal/raceapi"
	"github.com/jpalmerr/racescreen/internal/screen"
	"github.com/jpalmerr/racescreen/internal/store"
	"github.com/jpalmerr/racescreen/internal/view"
)

// Phase reports whether a leaderboard fetch is outstanding.
type Phase string

const (
	// PhaseIdle means no fetch is in flight.
	PhaseIdle Phase = "idle"

	// PhaseLoading means at least one fetch for the current pool is in flight.
	PhaseLoading Phase = "loading"
)

// Outcome classifies the last applied leaderboard fetch.
type Outcome string

const (
	// OutcomeNone means no fetch has completed yet.
	OutcomeNone Outcome = "none"

	// OutcomeSuccess means standings were replaced from the response.
	OutcomeSuccess Outcome = "success"

	// OutcomeSoftFailure means the service answered but reported no standings.
	OutcomeSoftFailure Outcome = "soft_failure"

	// OutcomeHardFailure means the request failed or the body was not JSON.
	OutcomeHardFailure Outcome = "hard_failure"
)

// Pool is a named group of participants ranked together.
type Pool struct {
	ID               int
	Name             string
	ParticipantCount int
}

// Driver is one car assigned to a participant.
type Driver struct {
	Name     string
	Number   string
	Position int
}

// StandingEntry is one participant's aggregated ranking, in service order.
type StandingEntry struct {
	Name            string
	AveragePosition float64
	Drivers         []Driver
}

// Highlighted reports whether the dashboard and terminal views mark this
// entry as leading.
func (e StandingEntry) Highlighted() bool {
	drivers := make([]raceapi.Driver, len(e.Drivers))
	for i, d := range e.Drivers {
		drivers[i] = raceapi.Driver{Name: d.Name, Number: d.Number, Position: d.Position}
	}
	return view.Highlighted(drivers)
}

// Snapshot is an immutable copy of the screen state after one transition.
//
// Snapshots passed to callbacks or returned by [RaceScreen.Latest] share no
// memory with the running screen.
type Snapshot struct {
	// Version increases by one with every published transition.
	Version     uint64
	PublishedAt time.Time

	Pools []Pool

	// Selected is the pool being polled, or nil.
	Selected *Pool

	Standings []StandingEntry

	// Error is the user-visible error message; empty means none.
	Error string

	// UpdatedAt is the last service timestamp, verbatim. Empty until the
	// first response carries one.
	UpdatedAt string

	Phase   Phase
	Outcome Outcome

	// Fetches counts applied leaderboard results.
	Fetches int

	state    screen.State
	viewOpts view.Options
}

// TextOptions controls [Snapshot.WriteText].
type TextOptions struct {
	// Color enables ANSI colour. Use it only when writing to a terminal.
	Color bool

	// Clear redraws from the top-left of the terminal. Requires Color.
	Clear bool
}

// WriteText renders the snapshot as terminal text: title, pool list,
// last-updated time, error and ranked standings.
func (s Snapshot) WriteText(w io.Writer, opts TextOptions) error {
	v := view.Render(s.state, s.viewOpts)
	return view.RenderText(w, v, view.TextOptions{Color: opts.Color, Clear: opts.Clear})
}

// Timestamp returns the last-updated time as displayed, or "Loading..."
// before the first timestamp arrives.
func (s Snapshot) Timestamp() string {
	return view.Render(s.state, s.viewOpts).Timestamp
}

// snapshotFromStore converts an internal store snapshot to the public type.
// Every slice is copied so callers cannot reach internal state.
func snapshotFromStore(snap store.Snapshot, viewOpts view.Options) Snapshot {
	st := snap.State.Clone()

	out := Snapshot{
		Version:     snap.Version,
		PublishedAt: snap.PublishedAt,
		Pools:       make([]Pool, 0, len(st.Pools)),
		Standings:   make([]StandingEntry, 0, len(st.Standings)),
		Error:       st.Error,
		UpdatedAt:   st.UpdatedAt,
		Phase:       Phase(st.Phase.String()),
		Outcome:     Outcome(st.Outcome.String()),
		Fetches:     st.Fetches,
		state:       st,
		viewOpts:    viewOpts,
	}

	for _, p := range st.Pools {
		out.Pools = append(out.Pools, poolFromAPI(p))
	}
	if st.Selected != nil {
		p := poolFromAPI(*st.Selected)
		out.Selected = &p
	}
	for _, e := range st.Standings {
		entry := StandingEntry{
			Name:            e.Name,
			AveragePosition: e.AveragePosition,
			Drivers:         make([]Driver, 0, len(e.Drivers)),
		}
		for _, d := range e.Drivers {
			entry.Drivers = append(entry.Drivers, Driver{Name: d.Name, Number: d.Number, Position: d.Position})
		}
		out.Standings = append(out.Standings, entry)
	}
	return out
}

func poolFromAPI(p raceapi.Pool) Pool {
	return Pool{ID: p.ID, Name: p.Name, ParticipantCount: p.ParticipantCount}
}
