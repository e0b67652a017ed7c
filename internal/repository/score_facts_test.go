//go:build integration

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/models"
)

func TestScoreFactRepository_InsertIfAbsent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	fact := &models.ScoreFact{
		TeamID:         teamID(t, ctx, db, "BOS"),
		FantasyGameID:  game.ID,
		ExternalGameID: 745123,
		Score:          3,
		GameDate:       time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		Final:          true,
	}

	inserted, err := db.ScoreFacts.InsertIfAbsent(ctx, fact)
	require.NoError(t, err)
	assert.True(t, inserted, "First insert should write")
	assert.NotZero(t, fact.ID)

	again := *fact
	again.ID = 0
	inserted, err = db.ScoreFacts.InsertIfAbsent(ctx, &again)
	require.NoError(t, err, "Duplicate fact should not be an error")
	assert.False(t, inserted, "Duplicate fact should be a no-op")

	facts, err := db.ScoreFacts.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 3, facts[0].Score)
	assert.True(t, facts[0].Final)
}

func TestScoreFactRepository_DistinctScoresAndGamesPlayed(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	bos := teamID(t, ctx, db, "BOS")

	for i, score := range []int{9, 3, 7, 3} {
		_, err := db.ScoreFacts.InsertIfAbsent(ctx, &models.ScoreFact{
			TeamID: bos, FantasyGameID: game.ID, ExternalGameID: int64(100 + i), Score: score,
			GameDate: time.Date(2024, 7, 2+i, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	_, err := db.ScoreFacts.InsertIfAbsent(ctx, &models.ScoreFact{
		TeamID: bos, FantasyGameID: game.ID, ExternalGameID: 99, Score: 11,
		GameDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	values, err := db.ScoreFacts.DistinctScores(ctx, bos, game.ID, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7, 9}, values, "Should be ordered, deduplicated and windowed")

	none, err := db.ScoreFacts.DistinctScores(ctx, teamID(t, ctx, db, "TOR"), game.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []int{}, none)

	played, err := db.ScoreFacts.GamesPlayed(ctx, game.ID, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 4, played[bos], "The fact before the window start is not a game played")

	all, err := db.ScoreFacts.GamesPlayed(ctx, game.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 5, all[bos])
}

func TestRunTotalRepository_InsertIfAbsent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Now())
	bos := teamID(t, ctx, db, "BOS")

	for _, v := range []int{7, 3, 7} {
		_, err := db.RunTotals.InsertIfAbsent(ctx, bos, game.ID, v)
		require.NoError(t, err)
	}

	values, err := db.RunTotals.Values(ctx, bos, game.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, values)

	byTeam, err := db.RunTotals.ValuesByTeam(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int][]int{bos: {3, 7}}, byTeam)
}

func TestScorecardRepository_ForToken(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	bos := teamID(t, ctx, db, "BOS")

	guest, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Guest"})
	require.NoError(t, err)
	require.NoError(t, db.Players.UpdateNonRegisteredScore(ctx, int(guest.NonRegisteredPlayerID.Int32), 2))

	_, err = db.RunTotals.InsertIfAbsent(ctx, bos, game.ID, 4)
	require.NoError(t, err)
	_, err = db.RunTotals.InsertIfAbsent(ctx, bos, game.ID, 1)
	require.NoError(t, err)
	_, err = db.ScoreFacts.InsertIfAbsent(ctx, &models.ScoreFact{
		TeamID: bos, FantasyGameID: game.ID, ExternalGameID: 5, Score: 4,
		GameDate: time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = db.ScoreFacts.InsertIfAbsent(ctx, &models.ScoreFact{
		TeamID: bos, FantasyGameID: game.ID, ExternalGameID: 4, Score: 9,
		GameDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	card, err := db.Scorecards.ForToken(ctx, game.Token)
	require.NoError(t, err)

	assert.Equal(t, game.ID, card.Game.ID)
	require.Len(t, card.Players, 1)
	assert.Equal(t, "Guest", card.Players[0].Name)
	assert.Equal(t, 2, card.Players[0].Score, "Non-registered players show their own score")
	assert.Equal(t, "BOS", card.Players[0].TeamCode)

	require.Len(t, card.Teams, 30)
	for _, team := range card.Teams {
		if team.TeamID == bos {
			assert.Equal(t, []int{1, 4}, team.RunTotals)
			assert.Equal(t, 1, team.GamesPlayed)
		} else {
			assert.Empty(t, team.RunTotals)
		}
	}

	_, err = db.Scorecards.ForToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
