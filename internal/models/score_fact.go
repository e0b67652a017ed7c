package models

import "time"

// ScoreFact is one observed score for one team in one real game, recorded
// against one fantasy game. Facts are never updated.
type ScoreFact struct {
	ID             int64     `db:"id" json:"id"`
	TeamID         int       `db:"team_id" json:"team_id" validate:"gt=0"`
	FantasyGameID  int       `db:"fantasy_game_id" json:"fantasy_game_id" validate:"gt=0"`
	ExternalGameID int64     `db:"external_game_id" json:"external_game_id" validate:"gt=0"`
	Score          int       `db:"score" json:"score" validate:"gte=0"`
	GameDate       time.Time `db:"game_date" json:"game_date" validate:"required"`
	Final          bool      `db:"final" json:"final"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// RunTotal is one distinct score a team has posted inside a fantasy game
type RunTotal struct {
	ID            int64     `db:"id" json:"id"`
	TeamID        int       `db:"team_id" json:"team_id"`
	FantasyGameID int       `db:"fantasy_game_id" json:"fantasy_game_id"`
	Value         int       `db:"value" json:"value"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CalendarDate truncates t to midnight UTC of the calendar day t falls on in
// its own location
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
