package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/models"
)

func TestParseSummary_Final(t *testing.T) {
	got, reason := ParseSummary("2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (7) (Final)")
	require.Equal(t, SkipNone, reason)

	assert.Equal(t, "Boston Red Sox", got.AwayName)
	assert.Equal(t, "BOS", got.AwayCode)
	assert.Equal(t, 3, got.AwayScore)
	assert.Equal(t, "Toronto Blue Jays", got.HomeName)
	assert.Equal(t, "TOR", got.HomeCode)
	assert.Equal(t, 7, got.HomeScore)
	assert.True(t, got.Final)
}

func TestParseSummary_EveryMappedPairing(t *testing.T) {
	names := make([]string, 0, len(models.TeamCodes))
	for name := range models.TeamCodes {
		names = append(names, name)
	}

	for i, away := range names {
		home := names[(i+1)%len(names)]
		awayScore, homeScore := i%13, (i*7)%21
		summary := fmt.Sprintf("2024-08-%02d - %s (%d) @ %s (%d) (Final)", i%28+1, away, awayScore, home, homeScore)

		got, reason := ParseSummary(summary)
		require.Equal(t, SkipNone, reason, summary)
		assert.Equal(t, awayScore, got.AwayScore, summary)
		assert.Equal(t, homeScore, got.HomeScore, summary)
		assert.Equal(t, models.TeamCodes[away], got.AwayCode, summary)
		assert.Equal(t, models.TeamCodes[home], got.HomeCode, summary)
	}
}

func TestParseSummary_Variants(t *testing.T) {
	tests := []struct {
		name      string
		summary   string
		wantAway  int
		wantHome  int
		wantFinal bool
	}{
		{
			name:      "game over marker",
			summary:   "2024-07-01 - New York Mets (0) @ Miami Marlins (12) (Game Over)",
			wantAway:  0,
			wantHome:  12,
			wantFinal: true,
		},
		{
			name:      "completed early",
			summary:   "2024-07-01 - Chicago Cubs (5) @ St. Louis Cardinals (1) (Completed Early)",
			wantAway:  5,
			wantHome:  1,
			wantFinal: true,
		},
		{
			name:     "no status marker",
			summary:  "2024-07-01 - Seattle Mariners (4) @ Texas Rangers (2)",
			wantAway: 4,
			wantHome: 2,
		},
		{
			name:      "double digit scores",
			summary:   "2024-07-01 - Los Angeles Dodgers (15) @ San Diego Padres (11) (Final)",
			wantAway:  15,
			wantHome:  11,
			wantFinal: true,
		},
		{
			name:      "trailing text after a second separator",
			summary:   "2024-07-01 - Athletics (2) @ Houston Astros (6) (Final) - Game 2",
			wantAway:  2,
			wantHome:  6,
			wantFinal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ParseSummary(tt.summary)
			require.Equal(t, SkipNone, reason)
			assert.Equal(t, tt.wantAway, got.AwayScore)
			assert.Equal(t, tt.wantHome, got.HomeScore)
			assert.Equal(t, tt.wantFinal, got.Final)
		})
	}
}

func TestParseSummary_Skips(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    SkipReason
	}{
		{"scheduled", "2024-07-02 - Boston Red Sox @ Toronto Blue Jays (Scheduled)", SkipScheduled},
		{"scheduled with scores", "2024-07-02 - Boston Red Sox (0) @ Toronto Blue Jays (0) (Scheduled)", SkipScheduled},
		{"empty", "", SkipMalformed},
		{"no date separator", "Boston Red Sox (3) @ Toronto Blue Jays (7) (Final)", SkipMalformed},
		{"no at separator", "2024-07-01 - Boston Red Sox (3) vs Toronto Blue Jays (7)", SkipMalformed},
		{"three fragments", "2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (7) @ Texas Rangers (1)", SkipMalformed},
		{"postponed", "2024-07-01 - Boston Red Sox @ Toronto Blue Jays (Postponed)", SkipNoScore},
		{"non numeric score", "2024-07-01 - Boston Red Sox (x) @ Toronto Blue Jays (7) (Final)", SkipNoScore},
		{"negative score", "2024-07-01 - Boston Red Sox (-3) @ Toronto Blue Jays (7) (Final)", SkipNoScore},
		{"in progress", "2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (2) (Top 5th)", SkipNotFinal},
		{"suspended", "2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (2) (Suspended)", SkipNotFinal},
		{"status on away fragment", "2024-07-01 - Boston Red Sox (3) (Final) @ Toronto Blue Jays (2)", SkipMalformed},
		{"unmapped away", "2024-07-01 - Montreal Expos (3) @ Toronto Blue Jays (2) (Final)", SkipUnmappedTeam},
		{"unmapped home", "2024-07-01 - Boston Red Sox (3) @ Brooklyn Dodgers (2) (Final)", SkipUnmappedTeam},
		{"case mismatch", "2024-07-01 - boston red sox (3) @ Toronto Blue Jays (2) (Final)", SkipUnmappedTeam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, reason := ParseSummary(tt.summary)
				assert.Equal(t, tt.want, reason)
			})
		})
	}
}

func TestParseGame_PoolWindow(t *testing.T) {
	pool := &models.FantasyGame{StartDate: time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)}
	summary := "2024-07-01 - Boston Red Sox (3) @ Toronto Blue Jays (7) (Final)"

	tests := []struct {
		name     string
		datetime string
		want     SkipReason
	}{
		{"after start", "2024-07-01T23:07:00Z", SkipNone},
		{"at start", "2024-07-01T18:00:00Z", SkipBeforePoolStart},
		{"before start", "2024-07-01T17:05:00Z", SkipBeforePoolStart},
		{"bad timestamp", "07/01/2024 11:07 PM", SkipBadTimestamp},
		{"empty timestamp", "", SkipBadTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ParseGame(models.ScheduleGame{ID: 745123, DateTime: tt.datetime, Summary: summary}, pool)
			assert.Equal(t, tt.want, reason)
			if tt.want == SkipNone {
				assert.Equal(t, int64(745123), got.ExternalGameID)
				assert.Equal(t, "BOS", got.AwayCode)
				assert.Equal(t, time.Date(2024, 7, 1, 23, 7, 0, 0, time.UTC), got.PlayedAt)
			}
		})
	}
}

func TestParseGame_SummarySkipWinsOverWindow(t *testing.T) {
	pool := &models.FantasyGame{StartDate: time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)}
	game := models.ScheduleGame{
		ID:       1,
		DateTime: "2024-06-01T18:00:00Z",
		Summary:  "2024-06-01 - Boston Red Sox @ Toronto Blue Jays (Scheduled)",
	}

	_, reason := ParseGame(game, pool)
	assert.Equal(t, SkipScheduled, reason)
}

func TestSkipReasons_Table(t *testing.T) {
	seen := make(map[SkipReason]bool)
	for _, r := range SkipReasons {
		assert.NotEmpty(t, r.Reason)
		assert.NotEmpty(t, r.Description)
		assert.False(t, seen[r.Reason], "duplicate reason %s", r.Reason)
		seen[r.Reason] = true
	}
	assert.Len(t, seen, 7)
}
