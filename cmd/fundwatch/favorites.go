package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/reconciler"
	"github.com/tair/fundwatch/internal/funds/usecase/command"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
)

func favoritesCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Inspect and change a user's favorites",
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "cli", "User key")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List favorites held by the durable store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			codes, err := app.Favorites.Handle(cmd.Context(), query.GetFavoritesQuery{User: domain.UserKey(user)})
			if err != nil {
				return err
			}
			for _, c := range codes {
				fmt.Println(c)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle [code]",
		Short: "Add or remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			res := app.Toggle.Handle(cmd.Context(), command.ToggleFavoriteCommand{
				User: domain.UserKey(user),
				Code: strings.TrimSpace(args[0]),
			})
			if res.Outcome == reconciler.OutcomeError {
				return fmt.Errorf("toggle %s: %w", args[0], res.Err)
			}

			state := "removed"
			if res.IsFavorite {
				state = "added"
			}
			fmt.Printf("%s %s (%s, %s)\n", res.Code, state, res.Source, res.Outcome)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "session",
		Short: "Show which source the user's favorites come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			return writeJSON(os.Stdout, app.Session.Handle(cmd.Context(), query.GetSessionQuery{User: domain.UserKey(user)}))
		},
	})

	return cmd
}
