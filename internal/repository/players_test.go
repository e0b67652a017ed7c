//go:build integration

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runpool/ingestion/internal/models"
)

func TestPlayerRepository_Add(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Now())
	bos := teamID(t, ctx, db, "BOS")
	nyy := teamID(t, ctx, db, "NYY")
	tor := teamID(t, ctx, db, "TOR")

	user := &models.User{Name: "Alex", Email: "alex@example.com"}
	require.NoError(t, db.Users.Create(ctx, user))

	registered, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Alex"})
	require.NoError(t, err, "Should add player matched to a user by name")
	assert.True(t, registered.IsRegistered())
	assert.Equal(t, int32(user.ID), registered.UserID.Int32)

	guest, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: nyy, Name: "Guest"})
	require.NoError(t, err, "Should add non-registered player")
	assert.False(t, guest.IsRegistered())
	require.True(t, guest.NonRegisteredPlayerID.Valid)

	_, err = db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Someone"})
	assert.ErrorIs(t, err, ErrTeamTaken, "Team slots are exclusive per game")

	_, err = db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: tor, UserID: user.ID})
	assert.ErrorIs(t, err, ErrDuplicatePlayer, "A user plays at most once per game")

	roster, err := db.Players.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}

func TestPlayerRepository_UpdateScores(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Now())
	guest, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: teamID(t, ctx, db, "SEA"), Name: "Guest"})
	require.NoError(t, err)

	require.NoError(t, db.Players.UpdateScore(ctx, guest.ID, 4))
	require.NoError(t, db.Players.UpdateNonRegisteredScore(ctx, int(guest.NonRegisteredPlayerID.Int32), 4))

	nr, err := db.Players.GetNonRegistered(ctx, int(guest.NonRegisteredPlayerID.Int32))
	require.NoError(t, err)
	assert.Equal(t, 4, nr.Score)

	players, err := db.Players.List(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, 4, players[0].Score)

	assert.ErrorIs(t, db.Players.UpdateScore(ctx, guest.ID+50, 1), ErrNotFound)
}

func TestPlayerRepository_Delete(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	game := createGame(t, ctx, db, time.Now())
	other := createGame(t, ctx, db, time.Now())
	bos := teamID(t, ctx, db, "BOS")

	user := &models.User{Name: "Alex", Email: "alex@example.com"}
	require.NoError(t, db.Users.Create(ctx, user))

	guest, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Guest"})
	require.NoError(t, err)
	registered, err := db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: teamID(t, ctx, db, "NYY"), UserID: user.ID})
	require.NoError(t, err)

	err = db.Players.Delete(ctx, other.ID, guest.ID)
	assert.ErrorIs(t, err, ErrNotFound, "A player is only removed from its own game")

	err = db.InTx(ctx, func(tx *Tx) error {
		return tx.Players.Delete(ctx, game.ID, guest.ID)
	})
	require.NoError(t, err)

	_, err = db.Players.GetNonRegistered(ctx, int(guest.NonRegisteredPlayerID.Int32))
	assert.ErrorIs(t, err, ErrNotFound, "The non-registered identity goes with the player")

	require.NoError(t, db.Players.Delete(ctx, game.ID, registered.ID))
	_, err = db.Users.GetByName(ctx, "Alex")
	assert.NoError(t, err, "Registered users outlive their players")

	roster, err := db.Players.ListByGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)

	_, err = db.Players.Add(ctx, models.NewPlayer{FantasyGameID: game.ID, TeamID: bos, Name: "Newcomer"})
	assert.NoError(t, err, "The freed team slot can be taken again")

	assert.ErrorIs(t, db.Players.Delete(ctx, game.ID, guest.ID), ErrNotFound)
}
