package racescreen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/racescreen/dashboard"
	"github.com/jpalmerr/racescreen/internal/raceapi"
	"github.com/jpalmerr/racescreen/internal/screen"
	"github.com/jpalmerr/racescreen/internal/server"
	"github.com/jpalmerr/racescreen/internal/store"
	"github.com/jpalmerr/racescreen/internal/view"
)

const (
	defaultPollingInterval = screen.DefaultInterval
	defaultPort            = 8080
)

var (
	// ErrNotRunning is returned by [RaceScreen.Select] outside [RaceScreen.Start].
	ErrNotRunning = errors.New("racescreen is not running")

	// ErrAlreadyRunning is returned by a second concurrent [RaceScreen.Start].
	ErrAlreadyRunning = errors.New("racescreen is already running")
)

// RaceScreen is the main orchestrator for pool loading, leaderboard polling
// and view publishing.
//
// RaceScreen loads the pool list once, selects the first pool, and refreshes
// that pool's leaderboard on a fixed interval. Every state change is stored,
// pushed to dashboard clients and passed to state callbacks. It is created
// using [New] with functional options and started with [RaceScreen.Start].
//
// The typical lifecycle is:
//
//	rs, err := racescreen.New(racescreen.WithBaseURL("https://pools.example.com"))
//	if err != nil {
//	    slog.Error("failed to create racescreen", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	rs.Start(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type RaceScreen struct {
	title           string
	source          Source
	pollingInterval time.Duration
	port            int
	dashboard       bool
	logger          *slog.Logger
	clock           clockwork.Clock
	viewOpts        view.Options
	corsOrigins     []string
	stateCallbacks  []func(Snapshot)

	mu     sync.Mutex
	screen *screen.Screen
	store  *store.MemoryStore
}

// New creates a new [RaceScreen] instance with the given options.
//
// A source must be configured via [WithSource] or [WithBaseURL].
// Other options have sensible defaults:
//   - Polling interval: 30 seconds
//   - Port: 8080
//   - Dashboard: enabled
//
// Returns an error if no source is configured or if any option is invalid.
//
// Example:
//
//	rs, err := racescreen.New(
//	    racescreen.WithSource(src),
//	    racescreen.WithPollingInterval(10 * time.Second),
//	    racescreen.WithPort(9090),
//	)
func New(opts ...Option) (*RaceScreen, error) {
	cfg := &rsConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		dashboard:       true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.source == nil {
		return nil, errors.New("a source is required")
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RaceScreen{
		title:           cfg.title,
		source:          *cfg.source,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		dashboard:       cfg.dashboard,
		logger:          logger,
		clock:           clock,
		viewOpts: view.Options{
			Title:      cfg.title,
			Location:   cfg.location,
			TimeFormat: cfg.timeFormat,
		},
		corsOrigins:    cfg.corsOrigins,
		stateCallbacks: cfg.stateCallbacks,
	}, nil
}

// Start loads pools, polls the selected pool's leaderboard and serves the
// dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The pool list is fetched once and the first pool is selected
//   - The selected pool is polled immediately, then at the configured interval
//   - The HTTP server starts on the configured port, unless disabled
//   - Every state change reaches the store, dashboard clients and callbacks
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start or if Start is already running.
func (rs *RaceScreen) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	rs.logger.Info("racescreen starting", "base_url", rs.source.baseURL)
	rs.logger.Info("polling configured", "interval", rs.pollingInterval.String())

	client, err := raceapi.NewClient(rs.source.baseURL, rs.source.Headers(), rs.source.timeout)
	if err != nil {
		return fmt.Errorf("failed to create race api client: %w", err)
	}
	defer client.Close()

	statusStore := store.NewMemoryStore()

	scr, err := screen.New(screen.Config{
		API:      client,
		Interval: rs.pollingInterval,
		Clock:    rs.clock,
		Logger:   rs.logger,
		OnChange: func(state screen.State) {
			// store update first (callbacks fire after data is published)
			snap := statusStore.Update(state)
			if len(rs.stateCallbacks) == 0 {
				return
			}
			for _, cb := range rs.stateCallbacks {
				invokeCallbackSafe(cb, snapshotFromStore(snap, rs.viewOpts), rs.logger)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}

	rs.mu.Lock()
	if rs.screen != nil {
		rs.mu.Unlock()
		return ErrAlreadyRunning
	}
	rs.screen = scr
	rs.store = statusStore
	rs.mu.Unlock()

	defer func() {
		rs.mu.Lock()
		rs.screen = nil
		rs.mu.Unlock()
	}()

	if rs.dashboard {
		httpServer := server.NewServer(statusStore, scr, server.Options{
			Port:        rs.port,
			Assets:      dashboard.Assets,
			View:        rs.viewOpts,
			CORSOrigins: rs.corsOrigins,
		}, rs.logger)
		if err := httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		rs.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", rs.port))
	}

	scr.Start(ctx)

	select {
	case <-ctx.Done():
	case <-scr.Done():
	}
	scr.Stop()
	rs.logger.Info("racescreen stopped")
	return nil
}

// Select switches the polled pool. The new pool is fetched immediately and
// then on the polling interval; an id that is not in the pool list clears
// the selection and stops polling. Selecting the current pool is a no-op.
// A selection made before the pool list has loaded replaces the default
// first-pool selection once the list arrives.
//
// Returns [ErrNotRunning] if called outside [RaceScreen.Start].
func (rs *RaceScreen) Select(poolID int) error {
	rs.mu.Lock()
	scr := rs.screen
	rs.mu.Unlock()

	if scr == nil {
		return ErrNotRunning
	}
	if err := scr.Select(poolID); err != nil {
		if errors.Is(err, screen.ErrStopped) {
			return ErrNotRunning
		}
		return err
	}
	return nil
}

// Latest returns the most recent snapshot. Before the first [RaceScreen.Start]
// it returns a zero-version snapshot that renders as "Loading...".
func (rs *RaceScreen) Latest() Snapshot {
	rs.mu.Lock()
	st := rs.store
	rs.mu.Unlock()

	if st == nil {
		return snapshotFromStore(store.Snapshot{}, rs.viewOpts)
	}
	return snapshotFromStore(st.Latest(), rs.viewOpts)
}

// Source returns the configured race pool service.
func (rs *RaceScreen) Source() Source {
	return rs.source
}

// Port returns the configured HTTP port for the dashboard server.
func (rs *RaceScreen) Port() int {
	return rs.port
}

// PollingInterval returns the configured leaderboard refresh interval.
func (rs *RaceScreen) PollingInterval() time.Duration {
	return rs.pollingInterval
}

// DashboardEnabled reports whether [RaceScreen.Start] serves HTTP.
func (rs *RaceScreen) DashboardEnabled() bool {
	return rs.dashboard
}

// invokeCallbackSafe calls a state callback with panic recovery.
// Panics are logged with a correlation id but do not propagate.
func invokeCallbackSafe(cb func(Snapshot), snap Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("state callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"version", snap.Version,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(snap)
}
