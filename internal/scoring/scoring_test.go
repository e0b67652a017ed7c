package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/parser"
)

func TestScoreFor_CountsDistinctValues(t *testing.T) {
	assert.Equal(t, 0, ScoreFor(nil))
	assert.Equal(t, 3, ScoreFor([]int{3, 7, 9}))
	assert.Equal(t, 3, ScoreFor([]int{3, 7, 3, 9}), "Duplicates count once")
	assert.Equal(t, 2, ScoreFor([]int{10, 1}), "Score is a count, not a sum")
}

func TestCoversPool(t *testing.T) {
	all := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	assert.True(t, CoversPool(all))
	assert.True(t, CoversPool(append([]int{15, 13}, all...)), "Extra values do not matter")
	assert.False(t, CoversPool(all[1:]), "Missing zero")
	assert.False(t, CoversPool([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13}), "Thirteen distinct values are not enough")
}

func TestMissingValues(t *testing.T) {
	tests := []struct {
		name     string
		observed []int
		existing []int
		want     []int
	}{
		{"nothing recorded yet", []int{3, 7, 9}, nil, []int{3, 7, 9}},
		{"partial overlap", []int{3, 7, 9}, []int{7}, []int{3, 9}},
		{"fully reconciled", []int{3, 7}, []int{3, 7}, nil},
		{"duplicate observations", []int{3, 3, 7}, nil, []int{3, 7}},
		{"existing extra values stay", []int{1}, []int{1, 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, missingValues(tt.observed, tt.existing))
		})
	}
}

func TestBuildFacts(t *testing.T) {
	matchup := parser.Matchup{
		Summary: parser.Summary{
			AwayCode: "BOS", AwayScore: 3,
			HomeCode: "TOR", HomeScore: 7,
			Final: true,
		},
		ExternalGameID: 745123,
	}
	teamIDs := map[string]int{"BOS": 4, "TOR": 29}
	date := time.Date(2024, 7, 1, 21, 9, 10, 0, time.FixedZone("EDT", -4*3600))

	facts, err := buildFacts(matchup, teamIDs, 12, date)
	require.NoError(t, err)
	require.Len(t, facts, 2)

	assert.Equal(t, 4, facts[0].TeamID)
	assert.Equal(t, 3, facts[0].Score)
	assert.Equal(t, 29, facts[1].TeamID)
	assert.Equal(t, 7, facts[1].Score)
	for _, f := range facts {
		assert.Equal(t, 12, f.FantasyGameID)
		assert.Equal(t, int64(745123), f.ExternalGameID)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), f.GameDate)
		assert.True(t, f.Final)
	}

	_, err = buildFacts(matchup, map[string]int{"BOS": 4}, 12, date)
	assert.True(t, errors.Is(err, errUnknownTeam))
}

func TestCycleResult_Status(t *testing.T) {
	r := CycleResult{Date: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), GamesProcessed: 2, FactsIngested: 8}
	assert.Equal(t, "success", r.Status())
	assert.Contains(t, r.Summary(), "date=2024-07-01 games=2")

	r.Errors = []string{"fantasy game 3: boom"}
	assert.Equal(t, "partial", r.Status())
}
