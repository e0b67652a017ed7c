package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"runpool/ingestion/internal/app"
	"runpool/ingestion/internal/lock"
)

func ingestCmd() *cobra.Command {
	var date string
	var gameID int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Record one day of results for one fantasy game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				d, err := parseDate(date, a.Scheduler.Yesterday())
				if err != nil {
					return err
				}
				facts := a.Pipeline.Ingest(ctx, d, gameID)
				fmt.Printf("fantasy_game=%d date=%s new_facts=%d\n", gameID, d.Format(dateLayout), len(facts))
				for _, f := range facts {
					fmt.Printf("  game=%d team=%d score=%d final=%t\n", f.ExternalGameID, f.TeamID, f.Score, f.Final)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Calendar date YYYY-MM-DD (default yesterday)")
	cmd.Flags().IntVar(&gameID, "game", 0, "Fantasy game id")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Derive run totals from recorded score facts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				r := a.Pipeline.Reconcile(ctx)
				fmt.Printf("games=%d failed=%d run_totals=%d committed=%t\n",
					r.GamesProcessed, r.GamesFailed, r.RunTotalsCreated, r.Committed)
				return errorsOf(r.Errors)
			})
		},
	}
}

func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recalculate every player score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				r := a.Pipeline.RecomputeAllScores(ctx)
				fmt.Printf("players=%d failed=%d games_completed=%d committed=%t\n",
					r.PlayersUpdated, r.PlayersFailed, r.GamesCompleted, r.Committed)
				return errorsOf(r.Errors)
			})
		},
	}
}

func cycleCmd() *cobra.Command {
	var date string
	var allowLocal bool
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run a full cycle under the job lock",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := lock.RequireShared(a.Config); err != nil {
					if !allowLocal {
						return fmt.Errorf("%w; stop the worker and pass --allow-local-lock to run anyway", err)
					}
					log.Warn().Err(err).Msg("Cycle is not excluded from a running worker")
				}
				d, err := parseDate(date, a.Scheduler.Yesterday())
				if err != nil {
					return err
				}
				result, ran, err := a.Scheduler.Run(ctx, d)
				if err != nil {
					return err
				}
				if !ran {
					return fmt.Errorf("a cycle is already running")
				}
				fmt.Println(result.Summary())
				return errorsOf(result.Errors)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Calendar date YYYY-MM-DD (default yesterday)")
	cmd.Flags().BoolVar(&allowLocal, "allow-local-lock", false, "Run even though LOCK_BACKEND=local cannot exclude the worker")
	return cmd
}

func errorsOf(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		fmt.Println("  error:", e)
	}
	return fmt.Errorf("%d error(s)", len(errs))
}
