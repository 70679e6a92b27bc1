// Package main is the entry point for the racescreen CLI.
//
// RaceScreen can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	racescreen serve -c config.yaml            # Start the dashboard
//	racescreen watch -c config.yaml --pool 2   # Render standings in the terminal
//	racescreen validate -c config.yaml         # Validate configuration
//	racescreen version                         # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "racescreen",
	Short: "A live motorsport pool standings screen",
	Long: `RaceScreen shows live standings for a motorsport prediction pool.

It loads the pools from a race pool service once, then refreshes the
selected pool's leaderboard every 30 seconds. Standings are shown in a
web dashboard with live updates, or rendered straight to the terminal.

Quick start:
  1. Create a config file (racescreen.yaml)
  2. Run: racescreen serve -c racescreen.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  title: Office Indy 500 Pool
  base_url: ${RACE_API_URL:-http://localhost:8000}
  poll_interval: 30s`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this racescreen binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "racescreen %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
}
