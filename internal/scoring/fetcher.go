package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/parser"
	"runpool/ingestion/internal/repository"
)

// ScheduleSource lists the real games played on a calendar date
type ScheduleSource interface {
	FetchSchedule(ctx context.Context, date time.Time) ([]models.ScheduleGame, error)
}

// Fetcher pulls one day of upstream results into score facts for one fantasy game
type Fetcher struct {
	db     *repository.Database
	source ScheduleSource
}

// NewFetcher creates a Fetcher
func NewFetcher(db *repository.Database, source ScheduleSource) *Fetcher {
	return &Fetcher{db: db, source: source}
}

// Ingest records the facts for date against a fantasy game and returns the
// ones that were new. Failures are logged and yield an empty result.
func (f *Fetcher) Ingest(ctx context.Context, date time.Time, fantasyGameID int) []*models.ScoreFact {
	return f.Run(ctx, date, fantasyGameID).Facts
}

// Run is Ingest with the full accounting of what happened
func (f *Fetcher) Run(ctx context.Context, date time.Time, fantasyGameID int) IngestResult {
	ctx, span := startSpan(ctx, "scoring.Fetcher.Ingest",
		attribute.Int("fantasy_game_id", fantasyGameID),
		attribute.String("date", date.Format("2006-01-02")),
	)
	defer span.End()

	start := time.Now()
	result := f.run(ctx, models.CalendarDate(date), fantasyGameID)

	status := "success"
	if result.Err != nil {
		status = "failed"
		span.RecordError(result.Err)
		log.Error().
			Err(result.Err).
			Int("fantasy_game_id", fantasyGameID).
			Str("date", date.Format("2006-01-02")).
			Msg("Ingest failed, no facts recorded")
		result.Facts = []*models.ScoreFact{}
	}
	metrics.RecordStage("ingest", status, time.Since(start).Seconds())
	metrics.ScoreFactsIngested.Add(float64(len(result.Facts)))

	return result
}

func (f *Fetcher) run(ctx context.Context, date time.Time, fantasyGameID int) IngestResult {
	result := IngestResult{
		FantasyGameID: fantasyGameID,
		Date:          date,
		Skipped:       make(map[string]int),
		Facts:         []*models.ScoreFact{},
	}

	game, err := f.db.FantasyGames.GetByID(ctx, fantasyGameID)
	if err != nil {
		result.Err = fmt.Errorf("failed to load fantasy game: %w", err)
		return result
	}

	schedule, err := f.source.FetchSchedule(ctx, date)
	if err != nil {
		metrics.RecordError("fetcher", "upstream")
		result.Err = fmt.Errorf("upstream schedule unavailable: %w", err)
		return result
	}
	result.Scheduled = len(schedule)

	if len(schedule) == 0 {
		log.Info().
			Str("date", date.Format("2006-01-02")).
			Msg("No games found for date")
		return result
	}

	teamIDs, err := f.db.Teams.IDsByCode(ctx)
	if err != nil {
		result.Err = err
		return result
	}

	var candidates []*models.ScoreFact
	for _, entry := range schedule {
		matchup, reason := parser.ParseGame(entry, game)
		if reason != parser.SkipNone {
			result.Skipped[string(reason)]++
			metrics.RecordSkip(string(reason))
			log.Debug().
				Int64("game_id", entry.ID).
				Str("summary", entry.Summary).
				Str("reason", string(reason)).
				Msg("Skipping schedule entry")
			continue
		}

		facts, err := buildFacts(matchup, teamIDs, fantasyGameID, date)
		if err != nil {
			result.Skipped[string(parser.SkipUnmappedTeam)]++
			metrics.RecordSkip(string(parser.SkipUnmappedTeam))
			log.Warn().
				Err(err).
				Int64("game_id", entry.ID).
				Msg("Skipping schedule entry")
			continue
		}

		for _, fact := range facts {
			if err := models.Validate(ctx, fact); err != nil {
				result.Rejected++
				metrics.FactsRejected.Inc()
				log.Warn().
					Err(err).
					Int64("game_id", fact.ExternalGameID).
					Int("team_id", fact.TeamID).
					Msg("Rejected invalid score fact")
				continue
			}
			candidates = append(candidates, fact)
		}
	}

	var inserted []*models.ScoreFact
	err = f.db.InTx(ctx, func(tx *repository.Tx) error {
		inserted = inserted[:0]
		for _, fact := range candidates {
			ok, err := tx.ScoreFacts.InsertIfAbsent(ctx, fact)
			if err != nil {
				return err
			}
			if ok {
				inserted = append(inserted, fact)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordError("fetcher", "persistence")
		result.Err = fmt.Errorf("failed to persist score facts: %w", err)
		return result
	}

	if len(inserted) > 0 {
		result.Facts = inserted
	}

	log.Info().
		Int("fantasy_game_id", fantasyGameID).
		Str("date", date.Format("2006-01-02")).
		Int("scheduled", result.Scheduled).
		Int("candidates", len(candidates)).
		Int("new_facts", len(result.Facts)).
		Int("rejected", result.Rejected).
		Msg("Ingest complete")

	return result
}

var errUnknownTeam = errors.New("team code not seeded")

// buildFacts turns one matchup into a fact per team
func buildFacts(m parser.Matchup, teamIDs map[string]int, fantasyGameID int, date time.Time) ([]*models.ScoreFact, error) {
	awayID, ok := teamIDs[m.AwayCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownTeam, m.AwayCode)
	}
	homeID, ok := teamIDs[m.HomeCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownTeam, m.HomeCode)
	}

	gameDate := models.CalendarDate(date)
	return []*models.ScoreFact{
		{
			TeamID:         awayID,
			FantasyGameID:  fantasyGameID,
			ExternalGameID: m.ExternalGameID,
			Score:          m.AwayScore,
			GameDate:       gameDate,
			Final:          m.Final,
		},
		{
			TeamID:         homeID,
			FantasyGameID:  fantasyGameID,
			ExternalGameID: m.ExternalGameID,
			Score:          m.HomeScore,
			GameDate:       gameDate,
			Final:          m.Final,
		},
	}, nil
}
