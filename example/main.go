package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/racescreen"
	"github.com/jpalmerr/racescreen/example/mockrace"
)

func main() {
	// start the mock race pool service
	mock := &http.Server{
		Addr:              ":8000",
		Handler:           mockrace.New(slog.Default()).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := mock.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock server error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	src, err := racescreen.NewSource("http://localhost:8000",
		racescreen.WithTimeout(5*time.Second),
	)
	if err != nil {
		slog.Error("failed to create source", "error", err)
		os.Exit(1)
	}

	rs, err := racescreen.New(
		racescreen.WithSource(src),
		racescreen.WithPollingInterval(5*time.Second),
		racescreen.WithPort(8080),
		racescreen.WithTitle("Indy 500 Pool Standings (demo)"),
		racescreen.WithStateCallback(func(snap racescreen.Snapshot) {
			if snap.Outcome != racescreen.OutcomeSuccess || len(snap.Standings) == 0 {
				return
			}
			slog.Info("leader", "pool", snap.Selected.Name, "name", snap.Standings[0].Name, "updated", snap.Timestamp())
		}),
	)
	if err != nil {
		slog.Error("failed to create racescreen", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   RaceScreen Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Pools: Family, Office, Empty (no picks yet)         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rs.Start(ctx); err != nil {
		slog.Error("racescreen error", "error", err)
		os.Exit(1)
	}
	_ = mock.Close()
}
