package racescreen

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// rsConfig holds mutable state during RaceScreen construction.
type rsConfig struct {
	title           string
	source          *Source
	pollingInterval time.Duration
	port            int
	dashboard       bool
	logger          *slog.Logger
	clock           clockwork.Clock
	location        *time.Location
	timeFormat      string
	corsOrigins     []string
	stateCallbacks  []func(Snapshot)
}

// Option is a function that configures a [RaceScreen] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*rsConfig) error

// WithSource sets the race pool service to read from. Required unless
// [WithBaseURL] is used.
func WithSource(s Source) Option {
	return func(cfg *rsConfig) error {
		if s.baseURL == "" {
			return errors.New("source must be created with NewSource")
		}
		cfg.source = &s
		return nil
	}
}

// WithBaseURL is shorthand for WithSource(NewSource(baseURL)).
//
// Example:
//
//	rs, err := racescreen.New(racescreen.WithBaseURL("https://pools.example.com"))
func WithBaseURL(baseURL string) Option {
	return func(cfg *rsConfig) error {
		s, err := NewSource(baseURL)
		if err != nil {
			return err
		}
		cfg.source = &s
		return nil
	}
}

// WithPollingInterval sets how often the selected pool's leaderboard is
// refreshed. The clock restarts on every selection change.
// Defaults to 30 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *rsConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *rsConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithoutDashboard disables the HTTP server. The screen still polls and
// callbacks still fire; use this for terminal or embedded consumers.
func WithoutDashboard() Option {
	return func(cfg *rsConfig) error {
		cfg.dashboard = false
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the RaceScreen instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *rsConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithClock replaces the clock that drives the refresh ticker.
// Tests pass a [clockwork.FakeClock] to step time manually.
//
// Returns an error if the clock is nil.
func WithClock(c clockwork.Clock) Option {
	return func(cfg *rsConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithStateCallback registers a function to be called after every state
// transition with a private [Snapshot].
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the screen goroutine,
// so a slow callback delays selection changes and poll results.
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	rs, err := racescreen.New(
//	    racescreen.WithBaseURL(url),
//	    racescreen.WithStateCallback(func(s racescreen.Snapshot) {
//	        if s.Outcome == racescreen.OutcomeHardFailure {
//	            log.Printf("leaderboard fetch failed for pool %v", s.Selected)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStateCallback(cb func(Snapshot)) Option {
	return func(cfg *rsConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.stateCallbacks = append(cfg.stateCallbacks, cb)
		return nil
	}
}

// WithTitle sets the heading shown on the dashboard and in the terminal.
//
// If not specified, defaults to "Indy 500 Pool Standings".
func WithTitle(title string) Option {
	return func(cfg *rsConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLocation sets the zone used to display the last-updated time.
// Defaults to [time.Local].
//
// Returns an error if loc is nil.
func WithLocation(loc *time.Location) Option {
	return func(cfg *rsConfig) error {
		if loc == nil {
			return errors.New("location cannot be nil")
		}
		cfg.location = loc
		return nil
	}
}

// WithTimeFormat sets the Go time layout of the last-updated time.
// Defaults to "3:04:05 PM".
func WithTimeFormat(layout string) Option {
	return func(cfg *rsConfig) error {
		if layout == "" {
			return errors.New("time format cannot be empty")
		}
		cfg.timeFormat = layout
		return nil
	}
}

// WithCORSOrigins restricts the origins allowed to call the dashboard API.
// Defaults to "*".
func WithCORSOrigins(origins ...string) Option {
	return func(cfg *rsConfig) error {
		cfg.corsOrigins = append(cfg.corsOrigins, origins...)
		return nil
	}
}
