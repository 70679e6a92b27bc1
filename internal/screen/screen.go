package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/racescreen/internal/raceapi"
)

// DefaultInterval is the leaderboard refresh cadence.
const DefaultInterval = 30 * time.Second

// ErrStopped is returned by [Screen.Select] once the screen has stopped.
var ErrStopped = errors.New("screen stopped")

// API is the subset of the race service the screen reads from.
type API interface {
	GetPools(ctx context.Context) ([]raceapi.Pool, error)
	GetLeaderboard(ctx context.Context, poolID int) (raceapi.LeaderboardResponse, error)
}

// Config holds the dependencies of a [Screen].
type Config struct {
	// API is the race service client. Required.
	API API

	// Interval is the time between leaderboard fetches. Defaults to
	// [DefaultInterval].
	Interval time.Duration

	// Clock drives the refresh ticker. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger receives poll and lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// OnChange is called from the screen goroutine after every transition
	// with a private copy of the new state. It must not block.
	OnChange func(State)
}

type poolsLoaded struct {
	pools []raceapi.Pool
	err   error
}

type poolSelected struct {
	poolID int
}

type leaderboardFetched struct {
	epoch   uint64
	seq     uint64
	poolID  int
	resp    raceapi.LeaderboardResponse
	err     error
	latency time.Duration
}

// Screen owns the pool selection and the leaderboard refresh cycle.
//
// All state transitions happen on a single goroutine started by
// [Screen.Start]. Fetches run on their own goroutines and report back to it,
// so the next tick never waits for a slow request. Each selection opens an
// epoch; results from an older epoch, or older than the last applied result
// of the current one, are discarded.
//
// Lifecycle methods are safe for concurrent use.
type Screen struct {
	api      API
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	onChange func(State)

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	latest  State

	// owned by the run goroutine
	state       State
	ticker      clockwork.Ticker
	tickC       <-chan time.Time
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc
	seq         uint64
	applied     uint64
	pending     int

	// a selection made before the pool list arrived
	deferredID  int
	hasDeferred bool
}

// New creates a [Screen]. It does nothing until [Screen.Start] is called.
func New(cfg Config) (*Screen, error) {
	if cfg.API == nil {
		return nil, errors.New("api is required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("interval cannot be negative")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Screen{
		api:      cfg.API,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		onChange: cfg.OnChange,
		events:   make(chan any, 16),
		done:     make(chan struct{}),
	}, nil
}

// Start mounts the screen: it loads the pool list once and begins polling
// the default selection. Start is non-blocking.
//
// Start is idempotent. If Stop was called first, Start is a no-op.
func (s *Screen) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.done) })
		s.run(runCtx)
	}()
}

// Stop unmounts the screen. The refresh ticker is stopped, in-flight
// requests are cancelled and their results dropped. Stop blocks until the
// screen goroutine and all fetch goroutines have returned.
//
// Stop is idempotent and safe to call before Start.
func (s *Screen) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	if wasStarted {
		s.wg.Wait()
	}

	// ensure Done is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the screen goroutine has exited.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

// Select changes the selected pool. Selecting the current pool is a no-op;
// an unknown id clears the selection and stops polling. A selection made
// before the pool list has loaded is held and applied in place of the
// default once the list arrives; only the latest such selection is kept.
//
// Select returns [ErrStopped] once the screen has stopped.
func (s *Screen) Select(poolID int) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}

	select {
	case s.events <- poolSelected{poolID: poolID}:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// State returns a copy of the most recently published state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.Clone()
}

func (s *Screen) run(ctx context.Context) {
	defer s.teardown()

	s.publish()

	s.wg.Add(1)
	go s.loadPools(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.tickC:
			s.startFetch(ctx)
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Screen) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case poolsLoaded:
		if ev.err != nil {
			s.logger.Warn("failed to load pools", "error", ev.err.Error())
			s.state = s.state.WithPoolsFailed()
		} else {
			s.logger.Info("pools loaded", "pool_count", len(ev.pools))
			s.state = s.state.WithPools(ev.pools)
		}
		if s.hasDeferred {
			s.hasDeferred = false
			s.selectPool(s.deferredID)
		}
		s.restart(ctx)

	case poolSelected:
		if !s.state.PoolsLoaded {
			s.logger.Info("selection deferred until pools load", "pool_id", ev.poolID)
			s.deferredID = ev.poolID
			s.hasDeferred = true
			return
		}
		if id, ok := s.state.SelectedID(); ok && id == ev.poolID {
			return
		}
		s.selectPool(ev.poolID)
		s.restart(ctx)

	case leaderboardFetched:
		s.applyLeaderboard(ev)
	}
}

// selectPool applies a selection to the state without touching the ticker.
func (s *Screen) selectPool(poolID int) {
	s.state = s.state.WithSelection(poolID)
	if s.state.Selected == nil {
		s.logger.Warn("selected pool not found", "pool_id", poolID)
	} else {
		s.logger.Info("pool selected", "pool_id", poolID, "pool", s.state.Selected.Name)
	}
}

// restart opens a new epoch for the current selection: the old ticker is
// stopped and its requests cancelled before anything new is armed.
func (s *Screen) restart(ctx context.Context) {
	s.stopTicker()
	if s.epochCancel != nil {
		s.epochCancel()
		s.epochCancel = nil
	}
	s.epoch++
	s.applied = 0
	s.pending = 0

	if s.state.Selected == nil {
		s.state.Phase = PhaseIdle
		s.publish()
		return
	}

	s.epochCtx, s.epochCancel = context.WithCancel(ctx)
	s.ticker = s.clock.NewTicker(s.interval)
	s.tickC = s.ticker.Chan()
	s.startFetch(ctx)
}

func (s *Screen) startFetch(ctx context.Context) {
	poolID, ok := s.state.SelectedID()
	if !ok {
		return
	}

	s.seq++
	ev := leaderboardFetched{epoch: s.epoch, seq: s.seq, poolID: poolID}
	fetchCtx := s.epochCtx
	s.pending++
	s.state = s.state.WithFetchStarted()
	s.publish()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := s.clock.Now()
		ev.resp, ev.err = s.api.GetLeaderboard(fetchCtx, poolID)
		ev.latency = s.clock.Since(start)
		s.send(ctx, ev)
	}()
}

func (s *Screen) applyLeaderboard(ev leaderboardFetched) {
	if ev.epoch != s.epoch {
		s.logger.Debug("discarding leaderboard from previous selection", "pool_id", ev.poolID)
		return
	}
	s.pending--
	if ev.seq <= s.applied {
		s.logger.Debug("discarding out-of-order leaderboard", "pool_id", ev.poolID, "seq", ev.seq)
		if s.pending == 0 {
			s.state.Phase = PhaseIdle
			s.publish()
		}
		return
	}
	s.applied = ev.seq

	if ev.err != nil {
		s.state = s.state.WithFetchError()
		s.logger.Warn("leaderboard fetch failed",
			"pool_id", ev.poolID,
			"latency_ms", ev.latency.Milliseconds(),
			"error", ev.err.Error(),
		)
	} else {
		s.state = s.state.WithLeaderboard(ev.resp)
		logAttrs := []any{
			"pool_id", ev.poolID,
			"outcome", s.state.Outcome.String(),
			"entries", len(s.state.Standings),
			"latency_ms", ev.latency.Milliseconds(),
		}
		if s.state.Outcome == OutcomeSuccess {
			s.logger.Debug("leaderboard updated", logAttrs...)
		} else {
			s.logger.Warn("leaderboard unavailable", append(logAttrs, "message", s.state.Error)...)
		}
	}

	if s.pending > 0 {
		s.state = s.state.WithFetchStarted()
	}
	s.publish()
}

func (s *Screen) loadPools(ctx context.Context) {
	defer s.wg.Done()
	pools, err := s.api.GetPools(ctx)
	s.send(ctx, poolsLoaded{pools: pools, err: err})
}

// send delivers an event to the screen goroutine unless it has stopped.
func (s *Screen) send(ctx context.Context, ev any) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *Screen) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.tickC = nil
}

func (s *Screen) teardown() {
	s.stopTicker()
	if s.epochCancel != nil {
		s.epochCancel()
		s.epochCancel = nil
	}
	s.logger.Info("screen stopped")
}

func (s *Screen) publish() {
	snap := s.state.Clone()

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(snap.Clone())
	}
}
