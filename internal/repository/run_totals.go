package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RunTotalRepository handles the distinct scores each team has hit per fantasy game
type RunTotalRepository struct {
	db DBTX
}

// InsertIfAbsent records a run total unless that exact value is already stored
func (r *RunTotalRepository) InsertIfAbsent(ctx context.Context, teamID, fantasyGameID, value int) (bool, error) {
	query := `
		INSERT INTO run_totals (team_id, fantasy_game_id, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, fantasy_game_id, value) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, teamID, fantasyGameID, value).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert run total: %w", err)
	}

	return true, nil
}

// Values returns the ordered run totals a team has hit in a fantasy game
func (r *RunTotalRepository) Values(ctx context.Context, teamID, fantasyGameID int) ([]int, error) {
	query := `
		SELECT value
		FROM run_totals
		WHERE team_id = $1 AND fantasy_game_id = $2
		ORDER BY value
	`

	return queryInts(ctx, r.db, query, teamID, fantasyGameID)
}

// ValuesByTeam returns every team's ordered run totals in a fantasy game
func (r *RunTotalRepository) ValuesByTeam(ctx context.Context, fantasyGameID int) (map[int][]int, error) {
	query := `
		SELECT team_id, value
		FROM run_totals
		WHERE fantasy_game_id = $1
		ORDER BY team_id, value
	`

	rows, err := r.db.Query(ctx, query, fantasyGameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run totals: %w", err)
	}
	defer rows.Close()

	byTeam := make(map[int][]int)
	for rows.Next() {
		var teamID, value int
		if err := rows.Scan(&teamID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan run total: %w", err)
		}
		byTeam[teamID] = append(byTeam[teamID], value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run totals: %w", err)
	}

	return byTeam, nil
}
