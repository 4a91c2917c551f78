package cli

import (
	"fmt"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newCollectionCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collect"},
		Short:   "Record and list cash collections",
	}

	cmd.AddCommand(
		newCollectionRecordCmd(a),
		newCollectionListCmd(a),
	)
	return cmd
}

func newCollectionRecordCmd(a *App) *cobra.Command {
	var date dateValue
	var note string

	cmd := &cobra.Command{
		Use:   "record AMOUNT [SESSION_ID]",
		Short: "Record an amount collected during a session",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args[1:], date.String())
			if err != nil {
				return err
			}
			rec, err := a.Collections.Record(ctx, app.RecordCollectionRequest{
				Actor:     a.Actor,
				SessionID: id,
				Amount:    args[0],
				Note:      note,
			})
			if rec != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Collected %s at %s %s\n",
					formatter.Bold(rec.Amount.StringFixed(2)), rec.MarketID, formatter.Dim("("+rec.ID+")"))
			}
			return err
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&note, "note", "", "Free-text note")
	return cmd
}

func newCollectionListCmd(a *App) *cobra.Command {
	var date dateValue
	var session string
	var markets []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a session's collections, or a date's across markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.Collections.List(cmd.Context(), app.ListCollectionsRequest{
				Actor:     a.Actor,
				SessionID: session,
				Date:      date.String(),
				MarketIDs: markets,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCollections(list))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&session, "session", "", "List one session's collections")
	cmd.Flags().StringSliceVar(&markets, "market", nil, "Only these markets (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("session", "date")
	cmd.MarkFlagsMutuallyExclusive("session", "market")
	return cmd
}
