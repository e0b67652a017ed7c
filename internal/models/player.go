package models

import (
	"database/sql"
	"time"
)

// User is a registered identity that players may link to
type User struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NonRegisteredPlayer is a named participant without an account
type NonRegisteredPlayer struct {
	ID     int    `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	TeamID int    `db:"team_id" json:"team_id"`
	Score  int    `db:"score" json:"score"`
}

// Player is one participant in one fantasy game. Exactly one of UserID and
// NonRegisteredPlayerID is set.
type Player struct {
	ID                    int           `db:"id" json:"id"`
	UserID                sql.NullInt32 `db:"user_id" json:"user_id"`
	NonRegisteredPlayerID sql.NullInt32 `db:"non_registered_player_id" json:"non_registered_player_id"`
	TeamID                int           `db:"team_id" json:"team_id"`
	FantasyGameID         int           `db:"fantasy_game_id" json:"fantasy_game_id"`
	Score                 int           `db:"score" json:"score"`
	CreatedAt             time.Time     `db:"created_at" json:"created_at"`
}

// IsRegistered reports whether the player is backed by a user account
func (p *Player) IsRegistered() bool {
	return p.UserID.Valid
}

// NewPlayer is used for adding a player to a fantasy game. Name is matched
// against registered users; if none matches a non-registered player is created.
type NewPlayer struct {
	FantasyGameID int    `json:"fantasy_game_id" validate:"gt=0"`
	TeamID        int    `json:"team_id" validate:"gt=0"`
	UserID        int    `json:"user_id" validate:"required_without=Name,gte=0"`
	Name          string `json:"name" validate:"required_without=UserID,max=120"`
}
