package models

// Scorecard is the shareable view of one fantasy game
type Scorecard struct {
	Game    *FantasyGame      `json:"game"`
	Players []ScorecardPlayer `json:"players"`
	Teams   []ScorecardTeam   `json:"teams"`
}

// ScorecardPlayer is a player row with its effective display name and score
type ScorecardPlayer struct {
	PlayerID   int    `json:"player_id"`
	Name       string `json:"name"`
	Registered bool   `json:"registered"`
	TeamID     int    `json:"team_id"`
	TeamCode   string `json:"team_code"`
	Score      int    `json:"score"`
}

// ScorecardTeam lists the run totals a team has hit in the game so far
type ScorecardTeam struct {
	TeamID      int    `json:"team_id"`
	TeamCode    string `json:"team_code"`
	RunTotals   []int  `json:"run_totals"`
	GamesPlayed int    `json:"games_played"`
}
