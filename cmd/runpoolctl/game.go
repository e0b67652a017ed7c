package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"runpool/ingestion/internal/app"
	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/repository"
)

func gameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Manage fantasy games and their rosters",
	}
	cmd.AddCommand(gameCreateCmd())
	cmd.AddCommand(gameDeleteCmd())
	cmd.AddCommand(gameAddPlayerCmd())
	cmd.AddCommand(gameRemovePlayerCmd())
	return cmd
}

func gameCreateCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an active fantasy game",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseStart(start)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				game, err := a.DB.FantasyGames.Create(ctx, models.FantasyGameInput{StartDate: startDate})
				if err != nil {
					return err
				}
				fmt.Printf("id=%d token=%s start=%s\n", game.ID, game.Token, game.StartDate.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Pool start, RFC3339 or YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func gameDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a fantasy game with its players and derived data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.DB.InTx(ctx, func(tx *repository.Tx) error {
					return tx.FantasyGames.Delete(ctx, id)
				}); err != nil {
					return err
				}
				fmt.Printf("deleted fantasy game %d\n", id)
				return nil
			})
		},
	}
}

func gameAddPlayerCmd() *cobra.Command {
	var gameID, userID int
	var team, name string
	cmd := &cobra.Command{
		Use:   "add-player",
		Short: "Add a player to a fantasy game by user id or name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				t, err := a.DB.Teams.GetByCode(ctx, team)
				if err != nil {
					return fmt.Errorf("team %s: %w", team, err)
				}

				var player *models.Player
				err = a.DB.InTx(ctx, func(tx *repository.Tx) error {
					player, err = tx.Players.Add(ctx, models.NewPlayer{
						FantasyGameID: gameID,
						TeamID:        t.ID,
						UserID:        userID,
						Name:          name,
					})
					return err
				})
				if err != nil {
					return err
				}

				fmt.Printf("player=%d team=%s registered=%t\n", player.ID, t.Code, player.IsRegistered())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&gameID, "game", 0, "Fantasy game id")
	cmd.Flags().StringVar(&team, "team", "", "Team code, e.g. BOS")
	cmd.Flags().IntVar(&userID, "user-id", 0, "Registered user id")
	cmd.Flags().StringVar(&name, "name", "", "Display name (matched against users)")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("team")
	cmd.MarkFlagsOneRequired("user-id", "name")
	return cmd
}

func gameRemovePlayerCmd() *cobra.Command {
	var gameID, playerID int
	cmd := &cobra.Command{
		Use:   "remove-player",
		Short: "Remove a player from a fantasy game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.DB.InTx(ctx, func(tx *repository.Tx) error {
					return tx.Players.Delete(ctx, gameID, playerID)
				}); err != nil {
					return err
				}
				fmt.Printf("removed player %d from fantasy game %d\n", playerID, gameID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&gameID, "game", 0, "Fantasy game id")
	cmd.Flags().IntVar(&playerID, "player", 0, "Player id")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}

func scorecardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scorecard <token>",
		Short: "Print the scorecard of a fantasy game as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				card, err := a.DB.Scorecards.ForToken(ctx, args[0])
				if err != nil {
					return err
				}
				out, err := sonic.ConfigStd.MarshalIndent(card, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
}
