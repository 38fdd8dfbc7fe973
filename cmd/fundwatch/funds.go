package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/internal/funds/usecase/query"
)

func fundsCmd() *cobra.Command {
	var (
		user          string
		search        string
		sortField     string
		direction     string
		favoritesOnly bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "funds",
		Short: "List funds as a user sees them",
		RunE: func(cmd *cobra.Command, args []string) error {
			var override query.ViewOverride
			if cmd.Flags().Changed("search") {
				override.SearchTerm = &search
			}
			if sortField != "" {
				f, err := domain.ParseSortField(sortField)
				if err != nil {
					return err
				}
				override.SortField = &f
			}
			if direction != "" {
				d, err := domain.ParseSortDirection(direction)
				if err != nil {
					return err
				}
				override.SortDirection = &d
			}
			if cmd.Flags().Changed("favorites-only") {
				override.FavoritesOnly = &favoritesOnly
			}

			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			result := app.List.Handle(cmd.Context(), query.ListFundsQuery{
				User:     domain.UserKey(user),
				Override: override,
			})
			if asJSON {
				return writeJSON(os.Stdout, result)
			}
			return printFunds(os.Stdout, result)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "cli", "User key whose favorites and view apply")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name or code")
	cmd.Flags().StringVar(&sortField, "sort", "", "Sort field (fundName, fundCode, basePrice, day1..day5)")
	cmd.Flags().StringVar(&direction, "direction", "", "Sort direction (asc, desc)")
	cmd.Flags().BoolVarP(&favoritesOnly, "favorites-only", "f", false, "Show favorites only")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func fundCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "fund [code]",
		Short: "Show one fund's detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := buildApp()
			if err != nil {
				return err
			}
			defer cleanup()

			detail, err := app.GetFund.Handle(cmd.Context(), query.GetFundQuery{
				User: domain.UserKey(user),
				Code: args[0],
			})
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, detail)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "cli", "User key whose favorites apply")
	return cmd
}

func printFunds(out io.Writer, result query.ListFundsResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tCODE\tNAME\tPRICE\t1D%\t2D%\t3D%\t4D%\t5D%")
	for _, f := range result.Funds {
		star := ""
		if f.IsFavorite {
			star = "*"
		}
		c := f.PriceChanges
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			star, f.Code, f.Name, f.BasePrice.StringFixed(0), c.Day1, c.Day2, c.Day3, c.Day4, c.Day5)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d of %d funds, favorites from %s", result.Total, result.Available, result.FavoritesSource)
	if result.FallbackData {
		fmt.Fprint(out, " (static data, fund API unavailable)")
	}
	fmt.Fprintln(out)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
