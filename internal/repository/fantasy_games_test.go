//go:build integration

package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/models"
)

func TestFantasyGameRepository_CreateAndGet(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	start := time.Date(2024, 7, 1, 18, 30, 0, 0, time.UTC)
	game := createGame(t, ctx, db, start)

	assert.Len(t, game.Token, 32, "Token should be 32 hex characters")
	assert.Equal(t, models.FantasyGameActive, game.Status)
	assert.True(t, game.StartDate.Equal(start))

	byID, err := db.FantasyGames.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, game.Token, byID.Token)

	byToken, err := db.FantasyGames.GetByToken(ctx, game.Token)
	require.NoError(t, err)
	assert.Equal(t, game.ID, byToken.ID)

	_, err = db.FantasyGames.GetByID(ctx, game.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	other := createGame(t, ctx, db, start)
	assert.NotEqual(t, game.Token, other.Token, "Tokens should be unique")
}

func TestFantasyGameRepository_CompleteLeavesActiveList(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	first := createGame(t, ctx, db, time.Now().Add(-48*time.Hour))
	second := createGame(t, ctx, db, time.Now().Add(-24*time.Hour))

	ok, err := db.FantasyGames.Complete(ctx, first.ID, Completion{
		EndDate:         time.Now(),
		TiebreakerNotes: sql.NullString{String: "manual close", Valid: true},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.FantasyGames.Complete(ctx, first.ID, Completion{EndDate: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok, "Completing twice should be a no-op")

	active, err := db.FantasyGames.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	done, err := db.FantasyGames.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FantasyGameCompleted, done.Status)
	assert.True(t, done.EndDate.Valid)
	assert.Equal(t, "manual close", done.TiebreakerNotes.String)
}

func TestFantasyGameRepository_DeleteCascades(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	bos := teamID(t, ctx, db, "BOS")

	var player *models.Player
	err := db.InTx(ctx, func(tx *Tx) error {
		var err error
		player, err = tx.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Guest"})
		return err
	})
	require.NoError(t, err)

	_, err = db.ScoreFacts.InsertIfAbsent(ctx, &models.ScoreFact{
		TeamID: bos, FantasyGameID: game.ID, ExternalGameID: 1, Score: 3,
		GameDate: time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = db.RunTotals.InsertIfAbsent(ctx, bos, game.ID, 3)
	require.NoError(t, err)

	require.NoError(t, db.FantasyGames.Delete(ctx, game.ID))

	players, err := db.Players.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, players)

	facts, err := db.ScoreFacts.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, facts)

	values, err := db.RunTotals.Values(ctx, bos, game.ID)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = db.Players.GetNonRegistered(ctx, int(player.NonRegisteredPlayerID.Int32))
	assert.ErrorIs(t, err, ErrNotFound, "Non-registered identity should be removed with the game")

	assert.ErrorIs(t, db.FantasyGames.Delete(ctx, game.ID), ErrNotFound)
}
