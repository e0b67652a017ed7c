// Package parser turns upstream schedule summaries into structured matchups.
//
// A summary for a completed game looks like
//
//	2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (7) (Final)
//
// Anything that does not fit that shape is skipped with a SkipReason. A skip
// is an expected outcome (scheduled or postponed games share the feed), so
// nothing in this package returns an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"runpool/ingestion/internal/models"
)

// SkipReason explains why a schedule entry produced no matchup
type SkipReason string

// Skip conditions, checked in this order
const (
	SkipNone            SkipReason = ""
	SkipScheduled       SkipReason = "scheduled"
	SkipMalformed       SkipReason = "malformed"
	SkipNoScore         SkipReason = "no_score"
	SkipNotFinal        SkipReason = "not_final"
	SkipUnmappedTeam    SkipReason = "unmapped_team"
	SkipBadTimestamp    SkipReason = "bad_timestamp"
	SkipBeforePoolStart SkipReason = "before_pool_start"
)

// SkipReasons lists every skip condition with a short description
var SkipReasons = []struct {
	Reason      SkipReason
	Description string
}{
	{SkipScheduled, `summary carries the "Scheduled" marker`},
	{SkipMalformed, `missing " - " separator or not exactly two " @ " fragments`},
	{SkipNoScore, "a team fragment has no parenthesized score"},
	{SkipNotFinal, "status marker is present but not a final marker"},
	{SkipUnmappedTeam, "team display name is not in the name table"},
	{SkipBadTimestamp, "game_datetime is not an ISO-8601 UTC timestamp"},
	{SkipBeforePoolStart, "game started at or before the fantasy game"},
}

const (
	scheduledMarker = "Scheduled"
	dateSeparator   = " - "
	teamSeparator   = " @ "
)

var finalMarkers = map[string]bool{
	"Final":           true,
	"Game Over":       true,
	"Completed Early": true,
}

// fragmentPattern matches "Team Name (7)" with an optional trailing "(Status)"
var fragmentPattern = regexp.MustCompile(`^(?P<team>[^()]+?)\s*\((?P<score>\d+)\)(?:\s*\((?P<status>[^()]*)\))?\s*$`)

var (
	teamGroup   = fragmentPattern.SubexpIndex("team")
	scoreGroup  = fragmentPattern.SubexpIndex("score")
	statusGroup = fragmentPattern.SubexpIndex("status")
)

// Summary is the structured content of one game summary
type Summary struct {
	AwayName  string
	AwayCode  string
	AwayScore int
	HomeName  string
	HomeCode  string
	HomeScore int
	Final     bool
}

// Matchup is a parsed summary tied to the upstream game it came from
type Matchup struct {
	Summary
	ExternalGameID int64
	PlayedAt       time.Time
}

type fragment struct {
	team   string
	score  int
	status string
}

// ParseSummary extracts both teams and scores from one summary string
func ParseSummary(summary string) (Summary, SkipReason) {
	if strings.Contains(summary, scheduledMarker) {
		return Summary{}, SkipScheduled
	}

	_, rest, found := strings.Cut(summary, dateSeparator)
	if !found {
		return Summary{}, SkipMalformed
	}
	if segment, _, more := strings.Cut(rest, dateSeparator); more {
		rest = segment
	}

	parts := strings.Split(rest, teamSeparator)
	if len(parts) != 2 {
		return Summary{}, SkipMalformed
	}

	away, reason := parseFragment(parts[0])
	if reason != SkipNone {
		return Summary{}, reason
	}
	home, reason := parseFragment(parts[1])
	if reason != SkipNone {
		return Summary{}, reason
	}

	// The status marker trails the home fragment only
	if away.status != "" {
		return Summary{}, SkipMalformed
	}

	final := false
	if home.status != "" {
		if !finalMarkers[home.status] {
			return Summary{}, SkipNotFinal
		}
		final = true
	}

	awayCode, ok := models.TeamCode(away.team)
	if !ok {
		return Summary{}, SkipUnmappedTeam
	}
	homeCode, ok := models.TeamCode(home.team)
	if !ok {
		return Summary{}, SkipUnmappedTeam
	}

	return Summary{
		AwayName:  away.team,
		AwayCode:  awayCode,
		AwayScore: away.score,
		HomeName:  home.team,
		HomeCode:  homeCode,
		HomeScore: home.score,
		Final:     final,
	}, SkipNone
}

func parseFragment(raw string) (fragment, SkipReason) {
	if !strings.Contains(raw, "(") {
		return fragment{}, SkipNoScore
	}

	m := fragmentPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return fragment{}, SkipNoScore
	}

	score, err := strconv.Atoi(m[scoreGroup])
	if err != nil {
		return fragment{}, SkipNoScore
	}

	return fragment{
		team:   strings.TrimSpace(m[teamGroup]),
		score:  score,
		status: strings.TrimSpace(m[statusGroup]),
	}, SkipNone
}

// ParseGame parses a schedule entry and applies the pool window: games at or
// before the pool's start are excluded.
func ParseGame(game models.ScheduleGame, pool *models.FantasyGame) (Matchup, SkipReason) {
	summary, reason := ParseSummary(game.Summary)
	if reason != SkipNone {
		return Matchup{}, reason
	}

	playedAt, err := time.Parse(time.RFC3339, game.DateTime)
	if err != nil {
		return Matchup{}, SkipBadTimestamp
	}

	if !pool.CountsGameAt(playedAt) {
		return Matchup{}, SkipBeforePoolStart
	}

	return Matchup{
		Summary:        summary,
		ExternalGameID: game.ID,
		PlayedAt:       playedAt.UTC(),
	}, SkipNone
}
