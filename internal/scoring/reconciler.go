package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/repository"
)

// Reconciler promotes newly observed distinct scores into run totals
type Reconciler struct {
	db  *repository.Database
	loc *time.Location
}

// NewReconciler creates a Reconciler. loc is the timezone schedule dates are
// expressed in; a pool's window opens on its start date in that zone.
func NewReconciler(db *repository.Database, loc *time.Location) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{db: db, loc: loc}
}

// Reconcile walks every active fantasy game and team in one transaction.
// A game that fails is rolled back to its savepoint and skipped.
func (r *Reconciler) Reconcile(ctx context.Context) ReconcileResult {
	ctx, span := startSpan(ctx, "scoring.Reconciler.Reconcile")
	defer span.End()

	start := time.Now()
	var result ReconcileResult

	err := r.db.InTx(ctx, func(tx *repository.Tx) error {
		result = ReconcileResult{}

		games, err := tx.FantasyGames.ListActive(ctx)
		if err != nil {
			return err
		}
		teams, err := tx.Teams.List(ctx)
		if err != nil {
			return err
		}

		for _, game := range games {
			var created int
			err := tx.Savepoint(ctx, func(sp *repository.Tx) error {
				var err error
				created, err = r.reconcileGame(ctx, sp, game, teams)
				return err
			})
			if err != nil {
				result.GamesFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("fantasy game %d: %v", game.ID, err))
				metrics.RecordError("reconciler", "game")
				log.Error().
					Err(err).
					Int("fantasy_game_id", game.ID).
					Msg("Failed to reconcile fantasy game, skipping")
				continue
			}

			result.GamesProcessed++
			result.RunTotalsCreated += created
		}

		return nil
	})

	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		metrics.RecordError("reconciler", "persistence")
		result.Errors = append(result.Errors, err.Error())
		result.RunTotalsCreated = 0
		log.Error().Err(err).Msg("Reconcile pass rolled back")
	} else {
		result.Committed = true
		metrics.RunTotalsCreated.Add(float64(result.RunTotalsCreated))
	}
	metrics.RecordStage("reconcile", status, time.Since(start).Seconds())

	log.Info().
		Int("games", result.GamesProcessed).
		Int("failed", result.GamesFailed).
		Int("run_totals_created", result.RunTotalsCreated).
		Bool("committed", result.Committed).
		Msg("Reconcile pass complete")

	return result
}

func (r *Reconciler) reconcileGame(ctx context.Context, tx *repository.Tx, game *models.FantasyGame, teams []*models.Team) (int, error) {
	since := game.WindowStart(r.loc)

	created := 0
	for _, team := range teams {
		observed, err := tx.ScoreFacts.DistinctScores(ctx, team.ID, game.ID, since)
		if err != nil {
			return 0, err
		}
		if len(observed) == 0 {
			continue
		}

		existing, err := tx.RunTotals.Values(ctx, team.ID, game.ID)
		if err != nil {
			return 0, err
		}

		for _, value := range missingValues(observed, existing) {
			ok, err := tx.RunTotals.InsertIfAbsent(ctx, team.ID, game.ID, value)
			if err != nil {
				return 0, err
			}
			if ok {
				created++
				log.Debug().
					Int("fantasy_game_id", game.ID).
					Str("team", team.Code).
					Int("value", value).
					Msg("Run total recorded")
			}
		}
	}

	return created, nil
}

// missingValues returns the observed values absent from existing, in order
func missingValues(observed, existing []int) []int {
	have := make(map[int]struct{}, len(existing))
	for _, v := range existing {
		have[v] = struct{}{}
	}

	var missing []int
	for _, v := range observed {
		if _, ok := have[v]; ok {
			continue
		}
		have[v] = struct{}{}
		missing = append(missing, v)
	}
	return missing
}
