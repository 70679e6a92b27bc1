// Package mockrace serves a fake race pool service for demos and local
// testing of the racescreen binary.
//
// Running order changes on every leaderboard request so the screen has
// something to show.
package mockrace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type pool struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

type driver struct {
	Name     string `json:"name"`
	Number   string `json:"number"`
	Position int    `json:"position"`
}

type standing struct {
	Name            string   `json:"name"`
	AveragePosition float64  `json:"average_position"`
	Drivers         []driver `json:"drivers"`
}

type leaderboard struct {
	Success   bool       `json:"success"`
	Standings []standing `json:"standings,omitempty"`
	UpdatedAt string     `json:"updatedAt"`
	Message   string     `json:"message,omitempty"`
}

var field = []driver{
	{Name: "Josef Newgarden", Number: "2"},
	{Name: "Pato O'Ward", Number: "5"},
	{Name: "Scott Dixon", Number: "9"},
	{Name: "Alex Palou", Number: "10"},
	{Name: "Kyle Kirkwood", Number: "27"},
	{Name: "Alexander Rossi", Number: "7"},
	{Name: "Scott McLaughlin", Number: "3"},
	{Name: "Will Power", Number: "12"},
}

// picks maps pool id to participant name to indexes into field.
var picks = map[int]map[string][]int{
	1: {
		"Alice": {0, 3},
		"Bob":   {1, 2},
		"Carol": {4, 5},
		"Dave":  {6, 7},
	},
	2: {
		"Erin":    {0, 1},
		"Frank":   {2, 3},
		"Grace":   {4, 6},
		"Heidi":   {5, 7},
		"Ivan":    {0, 2},
		"Judy":    {1, 3},
		"Mallory": {4, 7},
		"Niaj":    {5, 6},
		"Olivia":  {0, 4},
		"Peggy":   {1, 5},
		"Rupert":  {2, 6},
		"Sybil":   {3, 7},
	},
}

// Server holds the running order. The zero value is not usable; call New.
type Server struct {
	mu     sync.Mutex
	order  []int // order[i] is the field index running in position i+1
	laps   int
	now    func() time.Time
	logger *slog.Logger
}

// New returns a Server with the field in starting order.
func New(logger *slog.Logger) *Server {
	order := make([]int, len(field))
	for i := range order {
		order[i] = i
	}
	return &Server{order: order, now: time.Now, logger: logger}
}

// Handler returns the service routes:
//
//	GET /race/getPools
//	GET /race/getLeaderboard?pool_id=N
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/race", func(r chi.Router) {
		r.Get("/getPools", s.handlePools)
		r.Get("/getLeaderboard", s.handleLeaderboard)
	})

	return r
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools := []pool{
		{ID: 1, Name: "Family", ParticipantCount: len(picks[1])},
		{ID: 2, Name: "Office", ParticipantCount: len(picks[2])},
		{ID: 3, Name: "Empty", ParticipantCount: 0},
	}
	writeJSON(w, http.StatusOK, pools, s.logger)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("pool_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, leaderboard{
			Success: false,
			Message: "pool_id must be an integer",
		}, s.logger)
		return
	}

	updatedAt := s.now().UTC().Format(time.RFC3339)

	entries, ok := picks[id]
	if !ok {
		writeJSON(w, http.StatusOK, leaderboard{
			Success:   false,
			UpdatedAt: updatedAt,
			Message:   fmt.Sprintf("No picks have been made in pool %d yet.", id),
		}, s.logger)
		return
	}

	positions := s.advance()

	standings := make([]standing, 0, len(entries))
	for name, idx := range entries {
		st := standing{Name: name}
		total := 0
		for _, i := range idx {
			d := field[i]
			d.Position = positions[i]
			total += d.Position
			st.Drivers = append(st.Drivers, d)
		}
		st.AveragePosition = float64(total) / float64(len(idx))
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].AveragePosition != standings[j].AveragePosition {
			return standings[i].AveragePosition < standings[j].AveragePosition
		}
		return standings[i].Name < standings[j].Name
	})

	writeJSON(w, http.StatusOK, leaderboard{
		Success:   true,
		Standings: standings,
		UpdatedAt: updatedAt,
	}, s.logger)
}

// advance swaps the next pair of adjacent cars and returns each field index's
// current position.
func (s *Server) advance() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.laps % (len(s.order) - 1)
	s.laps++
	s.order[i], s.order[i+1] = s.order[i+1], s.order[i]

	positions := make([]int, len(field))
	for pos, idx := range s.order {
		positions[idx] = pos + 1
	}
	return positions
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}
