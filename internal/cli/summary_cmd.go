package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/spf13/cobra"
)

func newSummaryCmd(a *App) *cobra.Command {
	var date dateValue
	var markets []string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per-market rollup of sessions, tasks and collections for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snaps, err := a.Aggregation.Summarize(ctx, app.SummaryRequest{
				Actor:     a.Actor,
				Date:      date.String(),
				MarketIDs: markets,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSummary(a.displayDate(ctx, date.String()), snaps))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringSliceVar(&markets, "market", nil, "Only these markets (repeatable)")
	return cmd
}

func newMarketsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markets",
		Short: "Market schedule queries",
	}

	var date dateValue
	live := &cobra.Command{
		Use:   "live",
		Short: "List the markets scheduled to report on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			markets, err := a.Aggregation.LiveMarkets(ctx, app.LiveMarketsRequest{Actor: a.Actor, Date: date.String()})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatLiveMarkets(a.displayDate(ctx, date.String()), markets))
			return nil
		},
	}
	addDateFlag(live.Flags(), &date)

	cmd.AddCommand(live)
	return cmd
}

// displayDate returns date, or today in the organization timezone when it
// is empty.
func (a *App) displayDate(ctx context.Context, date string) string {
	if date != "" {
		return date
	}
	return domain.LocalDate(a.now(), a.location(ctx)).Format(domain.DateLayout)
}
