package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/models"
)

// ScoreFactRepository handles observed game scores
type ScoreFactRepository struct {
	db DBTX
}

// InsertIfAbsent stores a fact unless an identical one exists. It reports
// whether a row was written; an existing fact is not an error.
func (r *ScoreFactRepository) InsertIfAbsent(ctx context.Context, fact *models.ScoreFact) (bool, error) {
	query := `
		INSERT INTO score_facts (
			team_id, fantasy_game_id, external_game_id, score, game_date, final
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (team_id, fantasy_game_id, external_game_id, game_date, score) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		fact.TeamID, fact.FantasyGameID, fact.ExternalGameID,
		fact.Score, models.CalendarDate(fact.GameDate), fact.Final,
	).Scan(&fact.ID, &fact.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug().
			Int("team_id", fact.TeamID).
			Int("fantasy_game_id", fact.FantasyGameID).
			Int64("external_game_id", fact.ExternalGameID).
			Int("score", fact.Score).
			Msg("Score fact already recorded")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert score fact: %w", err)
	}

	return true, nil
}

// DistinctScores returns the ordered distinct scores a team posted in a
// fantasy game on or after the given calendar date
func (r *ScoreFactRepository) DistinctScores(ctx context.Context, teamID, fantasyGameID int, since time.Time) ([]int, error) {
	query := `
		SELECT DISTINCT score
		FROM score_facts
		WHERE team_id = $1 AND fantasy_game_id = $2 AND game_date >= $3
		ORDER BY score
	`

	return queryInts(ctx, r.db, query, teamID, fantasyGameID, models.CalendarDate(since))
}

// ListByGame returns every fact recorded against a fantasy game
func (r *ScoreFactRepository) ListByGame(ctx context.Context, fantasyGameID int) ([]*models.ScoreFact, error) {
	query := `
		SELECT id, team_id, fantasy_game_id, external_game_id, score, game_date, final, created_at
		FROM score_facts
		WHERE fantasy_game_id = $1
		ORDER BY game_date, external_game_id, team_id
	`

	rows, err := r.db.Query(ctx, query, fantasyGameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query score facts: %w", err)
	}
	defer rows.Close()

	var facts []*models.ScoreFact
	for rows.Next() {
		f := &models.ScoreFact{}
		if err := rows.Scan(
			&f.ID, &f.TeamID, &f.FantasyGameID, &f.ExternalGameID,
			&f.Score, &f.GameDate, &f.Final, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan score fact: %w", err)
		}
		facts = append(facts, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score facts: %w", err)
	}

	return facts, nil
}

// GamesPlayed counts the distinct real games each team has a fact for in a
// fantasy game, on or after the same calendar date DistinctScores uses
func (r *ScoreFactRepository) GamesPlayed(ctx context.Context, fantasyGameID int, since time.Time) (map[int]int, error) {
	query := `
		SELECT team_id, COUNT(DISTINCT external_game_id)
		FROM score_facts
		WHERE fantasy_game_id = $1 AND game_date >= $2
		GROUP BY team_id
	`

	rows, err := r.db.Query(ctx, query, fantasyGameID, models.CalendarDate(since))
	if err != nil {
		return nil, fmt.Errorf("failed to count games played: %w", err)
	}
	defer rows.Close()

	played := make(map[int]int)
	for rows.Next() {
		var teamID, count int
		if err := rows.Scan(&teamID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan games played: %w", err)
		}
		played[teamID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games played: %w", err)
	}

	return played, nil
}

func queryInts(ctx context.Context, db DBTX, query string, args ...any) ([]int, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}

	values, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to collect values: %w", err)
	}

	if values == nil {
		values = []int{}
	}
	return values, nil
}
