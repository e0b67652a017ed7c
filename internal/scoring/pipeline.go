// Package scoring holds the run pool pipeline: ingest upstream results as
// score facts, reconcile them into run totals and recalculate player scores.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel/attribute"

	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/repository"
)

// Pipeline runs the stages in order and is the entry point used by the
// scheduler, the admin API and the CLI
type Pipeline struct {
	db           *repository.Database
	fetcher      *Fetcher
	reconciler   *Reconciler
	recalculator *Recalculator
	now          func() time.Time
}

// NewPipeline wires the three stages over one database and schedule source
func NewPipeline(db *repository.Database, source ScheduleSource, loc *time.Location) *Pipeline {
	return &Pipeline{
		db:           db,
		fetcher:      NewFetcher(db, source),
		reconciler:   NewReconciler(db, loc),
		recalculator: NewRecalculator(db),
		now:          time.Now,
	}
}

// Ingest records one day of results for one fantasy game and returns the new facts
func (p *Pipeline) Ingest(ctx context.Context, date time.Time, fantasyGameID int) []*models.ScoreFact {
	return p.fetcher.Ingest(ctx, date, fantasyGameID)
}

// Reconcile runs one Reconciler pass
func (p *Pipeline) Reconcile(ctx context.Context) ReconcileResult {
	return p.reconciler.Reconcile(ctx)
}

// RecomputeAllScores runs one Recalculator pass
func (p *Pipeline) RecomputeAllScores(ctx context.Context) RecalculateResult {
	return p.recalculator.RecomputeAllScores(ctx)
}

// RunCycle ingests date for every active fantasy game, one at a time, then
// reconciles once and recalculates once. A game whose ingest errors or
// panics is skipped.
func (p *Pipeline) RunCycle(ctx context.Context, date time.Time) CycleResult {
	ctx, span := startSpan(ctx, "scoring.Pipeline.RunCycle",
		attribute.String("date", date.Format("2006-01-02")),
	)
	defer span.End()

	result := CycleResult{
		Date:      models.CalendarDate(date),
		StartedAt: p.now(),
	}

	log.Info().
		Str("date", result.Date.Format("2006-01-02")).
		Msg("Starting daily cycle")

	games, err := p.db.FantasyGames.ListActive(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list active fantasy games: %v", err))
		metrics.RecordError("pipeline", "list_games")
		log.Error().Err(err).Msg("Failed to list active fantasy games")
	}
	metrics.ActiveFantasyGames.Set(float64(len(games)))

	for _, game := range games {
		var ingest IngestResult
		var pc panics.Catcher
		pc.Try(func() {
			ingest = p.fetcher.Run(ctx, date, game.ID)
		})

		if recovered := pc.Recovered(); recovered != nil {
			result.GamesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("fantasy game %d: %v", game.ID, recovered.AsError()))
			metrics.RecordError("pipeline", "panic")
			log.Error().
				Int("fantasy_game_id", game.ID).
				Str("panic", recovered.String()).
				Msg("Recovered panic while ingesting fantasy game, skipping")
			continue
		}
		if ingest.Err != nil {
			result.GamesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("fantasy game %d: %v", game.ID, ingest.Err))
			continue
		}

		result.GamesProcessed++
		result.FactsIngested += len(ingest.Facts)
	}

	reconciled := p.reconciler.Reconcile(ctx)
	result.RunTotals = reconciled.RunTotalsCreated
	result.Errors = append(result.Errors, reconciled.Errors...)

	recalculated := p.recalculator.RecomputeAllScores(ctx)
	result.ScoresUpdated = recalculated.PlayersUpdated
	result.GamesCompleted = recalculated.GamesCompleted
	result.Errors = append(result.Errors, recalculated.Errors...)

	result.Duration = p.now().Sub(result.StartedAt)

	log.Info().
		Str("status", result.Status()).
		Dur("duration", result.Duration).
		Str("summary", result.Summary()).
		Msg("Daily cycle finished")

	return result
}
