// Command runpoolctl is the operator CLI for the run pool.
//
// Usage:
//
//	runpoolctl migrate up
//	runpoolctl ingest --date 2024-07-02 --game 3
//	runpoolctl cycle --date 2024-07-02
//	runpoolctl game create --start 2024-07-01T23:00:00Z
//	runpoolctl game add-player --game 3 --team BOS --name "Pat"
//	runpoolctl game remove-player --game 3 --player 12
//	runpoolctl scorecard 5f1c0e...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"runpool/ingestion/internal/app"
	"runpool/ingestion/internal/config"
)

const dateLayout = "2006-01-02"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	root := &cobra.Command{
		Use:           "runpoolctl",
		Short:         "Run pool operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(recomputeCmd())
	root.AddCommand(cycleCmd())
	root.AddCommand(gameCmd())
	root.AddCommand(scorecardCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads config, connects everything and runs fn under a
// signal-aware context
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.MigrateOnStart = false

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// parseDate accepts YYYY-MM-DD, or an empty string for fallback
func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

// parseStart accepts RFC3339 or a bare date (midnight UTC)
func parseStart(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start %q, want RFC3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
