// Backfill re-ingests a range of past dates for every active fantasy game,
// then reconciles and recomputes once.
//
// Runs once and exits. It holds the same job lock as the scheduler. Only the
// redis lock backend excludes a worker in another process, so with
// LOCK_BACKEND=local it refuses to start unless BACKFILL_ALLOW_LOCAL_LOCK=true.
//
//	BACKFILL_START=2024-07-01 BACKFILL_END=2024-07-31 backfill
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"runpool/ingestion/internal/app"
	"runpool/ingestion/internal/config"
	"runpool/ingestion/internal/lock"
	"runpool/ingestion/internal/models"
)

const dateLayout = "2006-01-02"

// maxBackfillDays bounds one run to roughly a season
const maxBackfillDays = 240

var errLockHeld = errors.New("a cycle is already running, try again later")

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// run returns before exiting so the job lock and connections are released
	if err := run(logger); err != nil {
		logger.Error("Backfill failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	allowLocal, _ := strconv.ParseBool(os.Getenv("BACKFILL_ALLOW_LOCAL_LOCK"))
	if err := checkLockBackend(cfg, allowLocal, logger); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	dates, err := backfillDates(os.Getenv("BACKFILL_START"), os.Getenv("BACKFILL_END"), a.Scheduler.Yesterday())
	if err != nil {
		return fmt.Errorf("invalid backfill range: %w", err)
	}

	logger.Info("Starting backfill",
		zap.String("from", dates[0].Format(dateLayout)),
		zap.String("to", dates[len(dates)-1].Format(dateLayout)),
		zap.Int("days", len(dates)))

	release, ok, err := a.Locker.TryLock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire job lock: %w", err)
	}
	if !ok {
		return errLockHeld
	}
	defer release()

	summary, err := runBackfill(ctx, a, dates, logger)
	if err != nil {
		return err
	}

	logger.Info("Backfill completed",
		zap.Int("games", summary.games),
		zap.Int("ingests", summary.ingests),
		zap.Int("facts", summary.facts),
		zap.Int("run_totals", summary.runTotals),
		zap.Int("scores", summary.scores),
		zap.Int("completed", summary.completed),
		zap.Int("errors", summary.errors))
	return nil
}

// checkLockBackend refuses a process-local lock unless the operator opted in
func checkLockBackend(cfg *config.Config, allowLocal bool, logger *zap.Logger) error {
	err := lock.RequireShared(cfg)
	if err == nil {
		return nil
	}
	if !allowLocal {
		return fmt.Errorf("%w; stop the worker and set BACKFILL_ALLOW_LOCAL_LOCK=true to run anyway", err)
	}
	logger.Warn("Backfill is not excluded from a running worker", zap.Error(err))
	return nil
}

type backfillSummary struct {
	games     int
	ingests   int
	facts     int
	runTotals int
	scores    int
	completed int
	errors    int
}

func runBackfill(ctx context.Context, a *app.App, dates []time.Time, logger *zap.Logger) (backfillSummary, error) {
	var s backfillSummary

	games, err := a.DB.FantasyGames.ListActive(ctx)
	if err != nil {
		return s, fmt.Errorf("failed to list active fantasy games: %w", err)
	}
	s.games = len(games)

	for _, game := range games {
		first := models.CalendarDate(game.StartDate)
		for _, d := range dates {
			if d.Before(first) {
				continue
			}
			if ctx.Err() != nil {
				return s, ctx.Err()
			}

			facts := a.Pipeline.Ingest(ctx, d, game.ID)
			s.ingests++
			s.facts += len(facts)
			logger.Debug("Ingested",
				zap.Int("fantasy_game_id", game.ID),
				zap.String("date", d.Format(dateLayout)),
				zap.Int("facts", len(facts)))
		}
	}

	reconciled := a.Pipeline.Reconcile(ctx)
	s.runTotals = reconciled.RunTotalsCreated
	s.errors += len(reconciled.Errors)

	recalculated := a.Pipeline.RecomputeAllScores(ctx)
	s.scores = recalculated.PlayersUpdated
	s.completed = recalculated.GamesCompleted
	s.errors += len(recalculated.Errors)

	for _, e := range append(reconciled.Errors, recalculated.Errors...) {
		logger.Error("Backfill stage error", zap.String("error", e))
	}

	return s, nil
}

// backfillDates expands start..end (inclusive, either order) into calendar
// dates. An empty end means yesterday; start is required.
func backfillDates(start, end string, yesterday time.Time) ([]time.Time, error) {
	if start == "" {
		return nil, fmt.Errorf("BACKFILL_START is required (YYYY-MM-DD)")
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("BACKFILL_START %q: %w", start, err)
	}

	to := models.CalendarDate(yesterday)
	if end != "" {
		to, err = time.Parse(dateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("BACKFILL_END %q: %w", end, err)
		}
	}

	if from.After(to) {
		from, to = to, from
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
		if len(dates) > maxBackfillDays {
			return nil, fmt.Errorf("backfill range exceeds %d days", maxBackfillDays)
		}
	}
	return dates, nil
}
