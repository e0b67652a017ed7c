package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/models"
)

// FantasyGameRepository handles fantasy game (pool) database operations
type FantasyGameRepository struct {
	db DBTX
}

const fantasyGameColumns = `
	id, start_date, token, status, end_date,
	winner_player_id, winner_team_id, tiebreaker_notes, created_at
`

func scanFantasyGame(row pgx.Row) (*models.FantasyGame, error) {
	game := &models.FantasyGame{}
	err := row.Scan(
		&game.ID, &game.StartDate, &game.Token, &game.Status, &game.EndDate,
		&game.WinnerPlayerID, &game.WinnerTeamID, &game.TiebreakerNotes, &game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return game, nil
}

// NewToken returns an unguessable 32-character hex share token
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create inserts a new fantasy game with a fresh share token
func (r *FantasyGameRepository) Create(ctx context.Context, input models.FantasyGameInput) (*models.FantasyGame, error) {
	status := input.Status
	if status == "" {
		status = models.FantasyGameActive
	}

	query := `
		INSERT INTO fantasy_games (start_date, token, status)
		VALUES ($1, $2, $3)
		RETURNING ` + fantasyGameColumns

	game, err := scanFantasyGame(r.db.QueryRow(ctx, query, input.StartDate.UTC(), NewToken(), status))
	if err != nil {
		return nil, fmt.Errorf("failed to create fantasy game: %w", err)
	}

	log.Debug().
		Int("id", game.ID).
		Time("start_date", game.StartDate).
		Msg("Fantasy game created")

	return game, nil
}

// GetByID retrieves a fantasy game by id
func (r *FantasyGameRepository) GetByID(ctx context.Context, id int) (*models.FantasyGame, error) {
	query := `SELECT ` + fantasyGameColumns + ` FROM fantasy_games WHERE id = $1`

	game, err := scanFantasyGame(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fantasy game id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fantasy game: %w", err)
	}

	return game, nil
}

// GetByToken retrieves a fantasy game by its share token
func (r *FantasyGameRepository) GetByToken(ctx context.Context, token string) (*models.FantasyGame, error) {
	query := `SELECT ` + fantasyGameColumns + ` FROM fantasy_games WHERE token = $1`

	game, err := scanFantasyGame(r.db.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fantasy game token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fantasy game: %w", err)
	}

	return game, nil
}

// ListActive returns every active fantasy game ordered by id
func (r *FantasyGameRepository) ListActive(ctx context.Context) ([]*models.FantasyGame, error) {
	query := `SELECT ` + fantasyGameColumns + `
		FROM fantasy_games
		WHERE status = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, models.FantasyGameActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active fantasy games: %w", err)
	}
	defer rows.Close()

	var games []*models.FantasyGame
	for rows.Next() {
		game, err := scanFantasyGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fantasy game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fantasy games: %w", err)
	}

	return games, nil
}

// Completion records how a pool finished
type Completion struct {
	EndDate         time.Time
	WinnerPlayerID  sql.NullInt32
	WinnerTeamID    sql.NullInt32
	TiebreakerNotes sql.NullString
}

// Complete marks an active fantasy game completed. Completing a game that is
// no longer active is a no-op and returns false.
func (r *FantasyGameRepository) Complete(ctx context.Context, id int, c Completion) (bool, error) {
	query := `
		UPDATE fantasy_games SET
			status = $2,
			end_date = $3,
			winner_player_id = $4,
			winner_team_id = $5,
			tiebreaker_notes = $6
		WHERE id = $1 AND status = $7
	`

	tag, err := r.db.Exec(ctx, query,
		id, models.FantasyGameCompleted, c.EndDate.UTC(),
		c.WinnerPlayerID, c.WinnerTeamID, c.TiebreakerNotes,
		models.FantasyGameActive,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete fantasy game: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Delete removes a fantasy game. Players, score facts and run totals go with
// it through ON DELETE CASCADE; non-registered identities are removed here.
func (r *FantasyGameRepository) Delete(ctx context.Context, id int) error {
	nonRegistered := `
		DELETE FROM non_registered_players
		WHERE id IN (
			SELECT non_registered_player_id
			FROM players
			WHERE fantasy_game_id = $1 AND non_registered_player_id IS NOT NULL
		)
	`
	if _, err := r.db.Exec(ctx, nonRegistered, id); err != nil {
		return fmt.Errorf("failed to delete non-registered players: %w", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM fantasy_games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fantasy game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fantasy game id=%d: %w", id, ErrNotFound)
	}

	log.Info().Int("id", id).Msg("Fantasy game deleted")

	return nil
}
