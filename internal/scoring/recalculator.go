package scoring

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/repository"
)

// Recalculator overwrites every player's score from their team's run totals
type Recalculator struct {
	db  *repository.Database
	now func() time.Time
}

// NewRecalculator creates a Recalculator
func NewRecalculator(db *repository.Database) *Recalculator {
	return &Recalculator{db: db, now: time.Now}
}

// ScoreFor is a player's score: how many distinct run totals the team has hit
func ScoreFor(values []int) int {
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// CoversPool reports whether values include every run total from 0 through 12
func CoversPool(values []int) bool {
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	for v := 0; v < models.PoolRunTotals; v++ {
		if !seen[v] {
			return false
		}
	}
	return true
}

// RecomputeAllScores recalculates every player in one transaction. A player
// that fails is rolled back to its savepoint and skipped. Active games where
// a player has covered the pool are completed in the same transaction.
func (r *Recalculator) RecomputeAllScores(ctx context.Context) RecalculateResult {
	ctx, span := startSpan(ctx, "scoring.Recalculator.RecomputeAllScores")
	defer span.End()

	start := time.Now()
	var result RecalculateResult

	err := r.db.InTx(ctx, func(tx *repository.Tx) error {
		result = RecalculateResult{}

		players, err := tx.Players.List(ctx)
		if err != nil {
			return err
		}

		active, err := tx.FantasyGames.ListActive(ctx)
		if err != nil {
			return err
		}
		activeIDs := make(map[int]bool, len(active))
		for _, g := range active {
			activeIDs[g.ID] = true
		}

		covered := make(map[int][]*models.Player)
		for _, player := range players {
			var values []int
			err := tx.Savepoint(ctx, func(sp *repository.Tx) error {
				var err error
				values, err = r.recomputePlayer(ctx, sp, player)
				return err
			})
			if err != nil {
				result.PlayersFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("player %d: %v", player.ID, err))
				metrics.RecordError("recalculator", "player")
				log.Error().
					Err(err).
					Int("player_id", player.ID).
					Msg("Failed to recompute player score, skipping")
				continue
			}

			result.PlayersUpdated++
			if activeIDs[player.FantasyGameID] && CoversPool(values) {
				covered[player.FantasyGameID] = append(covered[player.FantasyGameID], player)
			}
		}

		for gameID, winners := range covered {
			var completed bool
			err := tx.Savepoint(ctx, func(sp *repository.Tx) error {
				var err error
				completed, err = r.completeGame(ctx, sp, gameID, winners)
				return err
			})
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("complete fantasy game %d: %v", gameID, err))
				metrics.RecordError("recalculator", "completion")
				log.Error().Err(err).Int("fantasy_game_id", gameID).Msg("Failed to complete fantasy game")
				continue
			}
			if completed {
				result.GamesCompleted++
			}
		}

		return nil
	})

	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		metrics.RecordError("recalculator", "persistence")
		result.Errors = append(result.Errors, err.Error())
		result.PlayersUpdated = 0
		result.GamesCompleted = 0
		log.Error().Err(err).Msg("Recalculate pass rolled back")
	} else {
		result.Committed = true
		metrics.PlayerScoresUpdated.Add(float64(result.PlayersUpdated))
		metrics.FantasyGamesCompleted.Add(float64(result.GamesCompleted))
	}
	metrics.RecordStage("recalculate", status, time.Since(start).Seconds())

	log.Info().
		Int("players", result.PlayersUpdated).
		Int("failed", result.PlayersFailed).
		Int("games_completed", result.GamesCompleted).
		Bool("committed", result.Committed).
		Msg("Recalculate pass complete")

	return result
}

func (r *Recalculator) recomputePlayer(ctx context.Context, tx *repository.Tx, player *models.Player) ([]int, error) {
	values, err := tx.RunTotals.Values(ctx, player.TeamID, player.FantasyGameID)
	if err != nil {
		return nil, err
	}
	score := ScoreFor(values)

	if err := tx.Players.UpdateScore(ctx, player.ID, score); err != nil {
		return nil, err
	}
	if !player.IsRegistered() && player.NonRegisteredPlayerID.Valid {
		if err := tx.Players.UpdateNonRegisteredScore(ctx, int(player.NonRegisteredPlayerID.Int32), score); err != nil {
			return nil, err
		}
	}

	return values, nil
}

func (r *Recalculator) completeGame(ctx context.Context, tx *repository.Tx, gameID int, winners []*models.Player) (bool, error) {
	completion := repository.Completion{EndDate: r.now()}

	if len(winners) == 1 {
		completion.WinnerPlayerID = sql.NullInt32{Int32: int32(winners[0].ID), Valid: true}
		completion.WinnerTeamID = sql.NullInt32{Int32: int32(winners[0].TeamID), Valid: true}
	} else {
		ids := make([]int, 0, len(winners))
		for _, w := range winners {
			ids = append(ids, w.ID)
		}
		sort.Ints(ids)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprint(id)
		}
		completion.TiebreakerNotes = sql.NullString{
			String: "tied players: " + strings.Join(parts, ", "),
			Valid:  true,
		}
	}

	ok, err := tx.FantasyGames.Complete(ctx, gameID, completion)
	if err != nil {
		return false, err
	}
	if ok {
		log.Info().
			Int("fantasy_game_id", gameID).
			Int("winners", len(winners)).
			Msg("Fantasy game completed")
	}
	return ok, nil
}
