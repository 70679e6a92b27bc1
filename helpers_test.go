package racescreen

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// raceService is a fake race pool service.
type raceService struct {
	mu       sync.Mutex
	requests []int
}

func (s *raceService) leaderboardRequests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requests...)
}

func (s *raceService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/race/getPools", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "name": "Family", "participantCount": 4},
			{"id": 2, "name": "Office", "participantCount": 12},
		})
	})
	mux.HandleFunc("/race/getLeaderboard", func(w http.ResponseWriter, r *http.Request) {
		poolID, _ := strconv.Atoi(r.URL.Query().Get("pool_id"))
		s.mu.Lock()
		s.requests = append(s.requests, poolID)
		s.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"updatedAt": "2024-05-26T17:30:05Z",
			"standings": []map[string]any{
				{
					"name":             fmt.Sprintf("Leader of %d", poolID),
					"average_position": 1.5,
					"drivers": []map[string]any{
						{"name": "Newgarden", "number": "2", "position": 1},
						{"name": "Palou", "number": "10", "position": 4},
					},
				},
			},
		})
	})
	return mux
}

// newRaceService starts a fake service that is closed with the test.
func newRaceService(t *testing.T) (*raceService, *httptest.Server) {
	t.Helper()
	svc := &raceService{}
	ts := httptest.NewServer(svc.handler())
	t.Cleanup(ts.Close)
	return svc, ts
}

// snapshotRecorder collects callback snapshots.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
