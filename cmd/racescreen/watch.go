package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/racescreen"
	"github.com/jpalmerr/racescreen/config"
)

// watchCmd renders standings in the terminal instead of serving HTTP.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Render live standings in the terminal",
	Long: `Render the selected pool's standings in the terminal.

The screen is redrawn on every change. Type a pool id and press Enter
to switch pools. Colour and screen clearing are used only when stdout
is a terminal.

Example:
  racescreen watch -c config.yaml
  racescreen watch -c config.yaml --pool 2`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	watchCmd.Flags().Int("pool", 0, "pool id to select once pools are loaded (default: first pool)")
	watchCmd.Flags().Bool("no-color", false, "disable ANSI colour even on a terminal")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// keep logs quiet so they don't fight the redraws
	logger := newLogger(slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	noColor, _ := cmd.Flags().GetBool("no-color")

	renderer := &terminalRenderer{
		out: colorable.NewColorableStdout(),
		opts: racescreen.TextOptions{
			Color: tty && !noColor,
			Clear: tty,
		},
		logger: logger,
	}

	session := &watchSession{
		renderer: renderer,
		initial:  &initialSelection{},
		in:       cmd.InOrStdin(),
		errOut:   cmd.ErrOrStderr(),
	}
	if cmd.Flags().Changed("pool") {
		session.initial.poolID, _ = cmd.Flags().GetInt("pool")
		session.initial.enabled = true
	}

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, racescreen.WithLogger(logger))

	rs, err := session.newScreen(opts...)
	if err != nil {
		return fmt.Errorf("failed to create RaceScreen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilShutdown(ctx, rs, logger)
}

// watchSession ties terminal rendering and stdin selection to one screen.
type watchSession struct {
	renderer *terminalRenderer
	initial  *initialSelection
	in       io.Reader
	errOut   io.Writer

	rs       *racescreen.RaceScreen
	readOnce sync.Once
}

// newScreen creates the screen with the dashboard disabled and the session's
// callback registered after opts.
func (w *watchSession) newScreen(opts ...racescreen.Option) (*racescreen.RaceScreen, error) {
	opts = append(opts,
		racescreen.WithoutDashboard(),
		racescreen.WithStateCallback(w.onState),
	)
	rs, err := racescreen.New(opts...)
	if err != nil {
		return nil, err
	}
	w.rs = rs
	return rs, nil
}

func (w *watchSession) onState(snap racescreen.Snapshot) {
	w.renderer.render(snap)
	w.initial.apply(snap, w.rs.Select)

	// callbacks only fire once Start accepts selections
	w.readOnce.Do(func() {
		go readSelections(w.in, w.rs.Select, w.errOut)
	})
}

// terminalRenderer serialises redraws from state callbacks onto one writer.
type terminalRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	opts   racescreen.TextOptions
	logger *slog.Logger
}

func (r *terminalRenderer) render(snap racescreen.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := snap.WriteText(r.out, r.opts); err != nil {
		r.logger.Warn("failed to render standings", "error", err)
	}
}

// initialSelection switches to a requested pool once, after the pool list
// has loaded.
type initialSelection struct {
	enabled bool
	poolID  int
	fired   atomic.Bool
}

func (s *initialSelection) apply(snap racescreen.Snapshot, selectPool func(int) error) {
	if !s.enabled || len(snap.Pools) == 0 {
		return
	}
	if !s.fired.CompareAndSwap(false, true) {
		return
	}
	if snap.Selected != nil && snap.Selected.ID == s.poolID {
		return
	}
	// callbacks run on the poll goroutine; hand the switch back to it asynchronously
	go func() { _ = selectPool(s.poolID) }()
}

// readSelections reads one pool id per line and selects it. Blank lines are
// skipped. It returns when r is exhausted or the screen has stopped.
func readSelections(r io.Reader, selectPool func(int) error, errOut io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(errOut, "not a pool id: %q\n", line)
			continue
		}

		if err := selectPool(id); err != nil {
			fmt.Fprintf(errOut, "cannot select pool %d: %v\n", id, err)
			if errors.Is(err, racescreen.ErrNotRunning) {
				return
			}
		}
	}
}
