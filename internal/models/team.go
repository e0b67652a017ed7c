package models

import "time"

// Team is one of the 30 MLB clubs, seeded once by migration
type Team struct {
	ID        int       `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeamCodes maps upstream display names to internal team codes.
// Lookups are exact-match; a name missing here is skipped at parse time.
var TeamCodes = map[string]string{
	"Arizona Diamondbacks":  "ARI",
	"Atlanta Braves":        "ATL",
	"Baltimore Orioles":     "BAL",
	"Boston Red Sox":        "BOS",
	"Chicago White Sox":     "CWS",
	"Chicago Cubs":          "CHC",
	"Cincinnati Reds":       "CIN",
	"Cleveland Guardians":   "CLE",
	"Colorado Rockies":      "COL",
	"Detroit Tigers":        "DET",
	"Houston Astros":        "HOU",
	"Kansas City Royals":    "KC",
	"Los Angeles Angels":    "LAA",
	"Los Angeles Dodgers":   "LAD",
	"Miami Marlins":         "MIA",
	"Milwaukee Brewers":     "MIL",
	"Minnesota Twins":       "MIN",
	"New York Yankees":      "NYY",
	"New York Mets":         "NYM",
	"Oakland Athletics":     "OAK",
	"Athletics":             "OAK",
	"Philadelphia Phillies": "PHI",
	"Pittsburgh Pirates":    "PIT",
	"San Diego Padres":      "SD",
	"San Francisco Giants":  "SF",
	"Seattle Mariners":      "SEA",
	"St. Louis Cardinals":   "STL",
	"Tampa Bay Rays":        "TB",
	"Texas Rangers":         "TEX",
	"Toronto Blue Jays":     "TOR",
	"Washington Nationals":  "WAS",
}

// TeamCode returns the internal code for an upstream display name
func TeamCode(displayName string) (string, bool) {
	code, ok := TeamCodes[displayName]
	return code, ok
}
