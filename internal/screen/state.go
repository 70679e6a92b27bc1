package screen

import "github.com/jpalmerr/racescreen/internal/raceapi"

// Messages shown when a leaderboard fetch does not produce standings.
const (
	// UnavailableMessage is used when the service reports failure without
	// saying why.
	UnavailableMessage = "Leaderboard is not available."

	// FetchFailedMessage is used for transport and decode failures.
	FetchFailedMessage = "Failed to fetch leaderboard."
)

// Phase is the fetch lifecycle phase for the current selection.
type Phase int

const (
	// PhaseIdle means no fetch for the current selection is outstanding.
	PhaseIdle Phase = iota

	// PhaseLoading means at least one fetch is outstanding.
	PhaseLoading
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	default:
		return "idle"
	}
}

// Outcome records how the last applied fetch ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeSoftFailure
	OutcomeHardFailure
)

// String returns the outcome name used in logs and JSON.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeHardFailure:
		return "hard_failure"
	default:
		return "none"
	}
}

// State is the view-state record owned by one [Screen].
//
// State is a value: every transition returns a new State and leaves the
// receiver untouched. Slices are copied on the way in, so a State handed to
// a subscriber never changes underneath it.
type State struct {
	// Pools is the full pool set from the last load.
	Pools []raceapi.Pool

	// Selected is the current selection, or nil.
	Selected *raceapi.Pool

	// PoolsLoaded is set once the pool load has finished, successfully or not.
	PoolsLoaded bool

	// Standings are the displayed entries in service order.
	Standings []raceapi.StandingEntry

	// Error is the user-visible error message; empty means none.
	Error string

	// UpdatedAt is the last service timestamp; empty until one arrives.
	UpdatedAt string

	Phase   Phase
	Outcome Outcome

	// Fetches counts applied leaderboard results.
	Fetches int
}

// SelectedID returns the selected pool id and whether there is a selection.
func (s State) SelectedID() (int, bool) {
	if s.Selected == nil {
		return 0, false
	}
	return s.Selected.ID, true
}

// WithPools replaces the pool set and selects its first element.
func (s State) WithPools(pools []raceapi.Pool) State {
	s.Pools = clonePools(pools)
	s.PoolsLoaded = true
	s.Selected = nil
	if len(s.Pools) > 0 {
		first := s.Pools[0]
		s.Selected = &first
	}
	return s
}

// WithPoolsFailed records a failed pool load: no pools, no selection.
func (s State) WithPoolsFailed() State {
	s.Pools = []raceapi.Pool{}
	s.PoolsLoaded = true
	s.Selected = nil
	return s
}

// WithSelection selects the pool with the given id.
//
// An id that is not in the pool set clears the selection along with the
// standings and error shown for the old pool.
func (s State) WithSelection(poolID int) State {
	s.Selected = nil
	for _, p := range s.Pools {
		if p.ID == poolID {
			selected := p
			s.Selected = &selected
			break
		}
	}
	if s.Selected == nil {
		s.Phase = PhaseIdle
		s.Standings = nil
		s.Error = ""
	}
	return s
}

// WithFetchStarted marks a leaderboard fetch as outstanding.
func (s State) WithFetchStarted() State {
	s.Phase = PhaseLoading
	return s
}

// WithLeaderboard applies a decoded leaderboard response.
//
// A successful response with a standings array replaces the standings and
// clears the error. Anything else clears the standings and sets the
// service message, or [UnavailableMessage] when there is none. The
// timestamp is taken from the response in both cases.
func (s State) WithLeaderboard(resp raceapi.LeaderboardResponse) State {
	s.Phase = PhaseIdle
	s.Fetches++
	s.UpdatedAt = resp.UpdatedAt

	if resp.Success && resp.HasStandings {
		s.Standings = cloneStandings(resp.Standings)
		s.Error = ""
		s.Outcome = OutcomeSuccess
		return s
	}

	s.Standings = []raceapi.StandingEntry{}
	s.Error = resp.Message
	if s.Error == "" {
		s.Error = UnavailableMessage
	}
	s.Outcome = OutcomeSoftFailure
	return s
}

// WithFetchError applies a transport or decode failure. UpdatedAt is kept.
func (s State) WithFetchError() State {
	s.Phase = PhaseIdle
	s.Fetches++
	s.Standings = []raceapi.StandingEntry{}
	s.Error = FetchFailedMessage
	s.Outcome = OutcomeHardFailure
	return s
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Pools = clonePools(s.Pools)
	s.Standings = cloneStandings(s.Standings)
	if s.Selected != nil {
		selected := *s.Selected
		s.Selected = &selected
	}
	return s
}

func clonePools(pools []raceapi.Pool) []raceapi.Pool {
	if pools == nil {
		return nil
	}
	out := make([]raceapi.Pool, len(pools))
	copy(out, pools)
	return out
}

func cloneStandings(entries []raceapi.StandingEntry) []raceapi.StandingEntry {
	if entries == nil {
		return nil
	}
	out := make([]raceapi.StandingEntry, len(entries))
	for i, e := range entries {
		out[i] = e
		if e.Drivers != nil {
			out[i].Drivers = make([]raceapi.Driver, len(e.Drivers))
			copy(out[i].Drivers, e.Drivers)
		}
	}
	return out
}
