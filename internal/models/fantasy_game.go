package models

import (
	"database/sql"
	"time"
)

// Fantasy game lifecycle states
const (
	FantasyGameActive    = "active"
	FantasyGameCompleted = "completed"
)

// PoolRunTotals is how many distinct run totals (0 through 12) win a pool
const PoolRunTotals = 13

// FantasyGame is one run pool: a roster of players, each holding one team,
// scored on games completed after StartDate.
type FantasyGame struct {
	ID              int            `db:"id" json:"id"`
	StartDate       time.Time      `db:"start_date" json:"start_date"`
	Token           string         `db:"token" json:"token"`
	Status          string         `db:"status" json:"status"`
	EndDate         sql.NullTime   `db:"end_date" json:"end_date"`
	WinnerPlayerID  sql.NullInt32  `db:"winner_player_id" json:"winner_player_id"`
	WinnerTeamID    sql.NullInt32  `db:"winner_team_id" json:"winner_team_id"`
	TiebreakerNotes sql.NullString `db:"tiebreaker_notes" json:"tiebreaker_notes"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// CountsGameAt reports whether a real game at t falls inside the pool window.
// Games at or before the start timestamp never count.
func (g *FantasyGame) CountsGameAt(t time.Time) bool {
	return t.After(g.StartDate)
}

// WindowStart is the first calendar date, in loc, whose facts feed run totals
// and games played
func (g *FantasyGame) WindowStart(loc *time.Location) time.Time {
	return CalendarDate(g.StartDate.In(loc))
}

// FantasyGameInput is used for creating pools
type FantasyGameInput struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	Status    string    `json:"status" validate:"omitempty,oneof=active completed"`
}
