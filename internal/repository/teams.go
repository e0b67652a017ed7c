package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/models"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db DBTX
}

// List returns all teams ordered by id
func (r *TeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT id, code, name, created_at
		FROM teams
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team := &models.Team{}
		if err := rows.Scan(&team.ID, &team.Code, &team.Name, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// GetByCode retrieves a team by its 3-letter code
func (r *TeamRepository) GetByCode(ctx context.Context, code string) (*models.Team, error) {
	query := `
		SELECT id, code, name, created_at
		FROM teams
		WHERE code = $1
	`

	team := &models.Team{}
	err := r.db.QueryRow(ctx, query, code).Scan(&team.ID, &team.Code, &team.Name, &team.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("team %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// IDsByCode returns a code -> id index over every seeded team
func (r *TeamRepository) IDsByCode(ctx context.Context) (map[string]int, error) {
	teams, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(teams))
	for _, team := range teams {
		index[team.Code] = team.ID
	}

	log.Debug().Int("teams", len(index)).Msg("Loaded team index")

	return index, nil
}
