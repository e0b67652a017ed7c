package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/models"
)

const uniqueViolation = "23505"

// PlayerRepository handles fantasy participants
type PlayerRepository struct {
	db DBTX
}

const playerColumns = `id, user_id, non_registered_player_id, team_id, fantasy_game_id, score, created_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	p := &models.Player{}
	if err := row.Scan(
		&p.ID, &p.UserID, &p.NonRegisteredPlayerID, &p.TeamID, &p.FantasyGameID, &p.Score, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return p, nil
}

// Add puts a participant into a fantasy game. A name matching a registered
// user links that user; any other name creates a non-registered player.
// Call it inside InTx so the identity and the player land together.
func (r *PlayerRepository) Add(ctx context.Context, in models.NewPlayer) (*models.Player, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM players WHERE fantasy_game_id = $1 AND team_id = $2)`,
		in.FantasyGameID, in.TeamID,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("failed to check team slot: %w", err)
	}
	if taken {
		return nil, ErrTeamTaken
	}

	var userID, nonRegisteredID sql.NullInt32
	switch {
	case in.UserID > 0:
		userID = sql.NullInt32{Int32: int32(in.UserID), Valid: true}
	default:
		name := strings.TrimSpace(in.Name)
		user, err := (&UserRepository{db: r.db}).GetByName(ctx, name)
		switch {
		case err == nil:
			userID = sql.NullInt32{Int32: int32(user.ID), Valid: true}
		case errors.Is(err, ErrNotFound):
			var id int32
			err := r.db.QueryRow(ctx,
				`INSERT INTO non_registered_players (name, team_id) VALUES ($1, $2) RETURNING id`,
				name, in.TeamID,
			).Scan(&id)
			if err != nil {
				return nil, fmt.Errorf("failed to create non-registered player: %w", err)
			}
			nonRegisteredID = sql.NullInt32{Int32: id, Valid: true}
		default:
			return nil, err
		}
	}

	query := `
		INSERT INTO players (user_id, non_registered_player_id, team_id, fantasy_game_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + playerColumns

	player, err := scanPlayer(r.db.QueryRow(ctx, query, userID, nonRegisteredID, in.TeamID, in.FantasyGameID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "players_team_per_game" {
				return nil, ErrTeamTaken
			}
			return nil, ErrDuplicatePlayer
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	log.Debug().
		Int("id", player.ID).
		Int("fantasy_game_id", player.FantasyGameID).
		Int("team_id", player.TeamID).
		Bool("registered", player.IsRegistered()).
		Msg("Player added")

	return player, nil
}

// Delete removes a player from a fantasy game, with the non-registered
// identity it was created with. A player id from another game is not found.
// Call it inside InTx so both rows go together.
func (r *PlayerRepository) Delete(ctx context.Context, fantasyGameID, playerID int) error {
	var nonRegisteredID sql.NullInt32
	err := r.db.QueryRow(ctx,
		`DELETE FROM players WHERE id = $1 AND fantasy_game_id = $2 RETURNING non_registered_player_id`,
		playerID, fantasyGameID,
	).Scan(&nonRegisteredID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("player id=%d in fantasy game %d: %w", playerID, fantasyGameID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	if nonRegisteredID.Valid {
		if _, err := r.db.Exec(ctx, `DELETE FROM non_registered_players WHERE id = $1`, nonRegisteredID.Int32); err != nil {
			return fmt.Errorf("failed to delete non-registered player: %w", err)
		}
	}

	log.Debug().
		Int("id", playerID).
		Int("fantasy_game_id", fantasyGameID).
		Msg("Player removed")

	return nil
}

// List returns every player ordered by fantasy game then id
func (r *PlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY fantasy_game_id, id`
	return r.query(ctx, query)
}

// ListByGame returns the roster of one fantasy game
func (r *PlayerRepository) ListByGame(ctx context.Context, fantasyGameID int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE fantasy_game_id = $1 ORDER BY id`
	return r.query(ctx, query, fantasyGameID)
}

func (r *PlayerRepository) query(ctx context.Context, query string, args ...any) ([]*models.Player, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// UpdateScore overwrites a player's cached score
func (r *PlayerRepository) UpdateScore(ctx context.Context, playerID, score int) error {
	tag, err := r.db.Exec(ctx, `UPDATE players SET score = $2 WHERE id = $1`, playerID, score)
	if err != nil {
		return fmt.Errorf("failed to update player score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player id=%d: %w", playerID, ErrNotFound)
	}
	return nil
}

// UpdateNonRegisteredScore overwrites the score shown for a non-registered player
func (r *PlayerRepository) UpdateNonRegisteredScore(ctx context.Context, nonRegisteredID, score int) error {
	tag, err := r.db.Exec(ctx, `UPDATE non_registered_players SET score = $2 WHERE id = $1`, nonRegisteredID, score)
	if err != nil {
		return fmt.Errorf("failed to update non-registered player score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("non-registered player id=%d: %w", nonRegisteredID, ErrNotFound)
	}
	return nil
}

// GetNonRegistered retrieves a non-registered player by id
func (r *PlayerRepository) GetNonRegistered(ctx context.Context, id int) (*models.NonRegisteredPlayer, error) {
	query := `SELECT id, name, team_id, score FROM non_registered_players WHERE id = $1`

	nr := &models.NonRegisteredPlayer{}
	err := r.db.QueryRow(ctx, query, id).Scan(&nr.ID, &nr.Name, &nr.TeamID, &nr.Score)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("non-registered player id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get non-registered player: %w", err)
	}

	return nr, nil
}
