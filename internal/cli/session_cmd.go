package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start and move reporting sessions through their lifecycle",
	}

	cmd.AddCommand(
		newSessionStartCmd(a),
		newSessionTransitionCmd(a, "activate", "Activate a draft session", "activated", a.sessionsActivate),
		newSessionTransitionCmd(a, "punch-in", "Record the start of fieldwork", "punched in", a.sessionsPunchIn),
		newSessionTransitionCmd(a, "punch-out", "Record the end of fieldwork", "punched out", a.sessionsPunchOut),
		newSessionTransitionCmd(a, "finalize", "Lock the session for the day", "finalized", a.sessionsFinalize),
		newSessionShowCmd(a),
		newSessionListCmd(a),
	)
	return cmd
}

type transitionFunc func(context.Context, app.SessionRequest) (*domain.Session, error)

func (a *App) sessionsActivate(ctx context.Context, r app.SessionRequest) (*domain.Session, error) {
	return a.Sessions.Activate(ctx, r)
}

func (a *App) sessionsPunchIn(ctx context.Context, r app.SessionRequest) (*domain.Session, error) {
	return a.Sessions.PunchIn(ctx, r)
}

func (a *App) sessionsPunchOut(ctx context.Context, r app.SessionRequest) (*domain.Session, error) {
	return a.Sessions.PunchOut(ctx, r)
}

func (a *App) sessionsFinalize(ctx context.Context, r app.SessionRequest) (*domain.Session, error) {
	return a.Sessions.Finalize(ctx, r)
}

func newSessionStartCmd(a *App) *cobra.Command {
	var date dateValue
	var activate bool

	cmd := &cobra.Command{
		Use:   "start MARKET",
		Short: "Create a draft session at a market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.Sessions.Create(ctx, app.CreateSessionRequest{
				Actor:    a.Actor,
				MarketID: args[0],
				Date:     date.String(),
			})
			if err != nil {
				return err
			}
			verb := "started"
			if activate {
				sess, err = a.Sessions.Activate(ctx, app.SessionRequest{Actor: a.Actor, SessionID: sess.ID})
				if err != nil {
					return err
				}
				verb = "started and activated"
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition(verb, sess, a.location(ctx)))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().BoolVar(&activate, "activate", false, "Activate the session right away")
	return cmd
}

// newSessionTransitionCmd builds one lifecycle command. The session id is
// optional; without it the actor's open session for the date is used.
func newSessionTransitionCmd(a *App, use, short, verb string, run transitionFunc) *cobra.Command {
	var date dateValue

	cmd := &cobra.Command{
		Use:   use + " [SESSION_ID]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args, date.String())
			if err != nil {
				return err
			}
			sess, err := run(ctx, app.SessionRequest{Actor: a.Actor, SessionID: id})
			if sess != nil {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition(verb, sess, a.location(ctx)))
			}
			return err
		},
	}

	addDateFlag(cmd.Flags(), &date)
	return cmd
}

func newSessionShowCmd(a *App) *cobra.Command {
	var date dateValue

	cmd := &cobra.Command{
		Use:   "show [SESSION_ID]",
		Short: "Show a session with its task progress and ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args, date.String())
			if err != nil {
				return err
			}
			req := app.SessionRequest{Actor: a.Actor, SessionID: id}
			sess, err := a.Sessions.Get(ctx, req)
			if err != nil {
				return err
			}
			progress, err := a.Ledger.Progress(ctx, req)
			if err != nil {
				return err
			}
			records, err := a.Ledger.List(ctx, req)
			if err != nil {
				return err
			}

			loc := a.location(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.FormatSession(sess, loc))
			fmt.Fprintln(out, formatter.RenderBox("Progress", formatter.FormatProgress(progress)))
			fmt.Fprint(out, formatter.FormatLedger(records, loc))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	return cmd
}

func newSessionListCmd(a *App) *cobra.Command {
	var date dateValue
	var owner string
	var markets, statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req := app.ListSessionsRequest{
				Actor:     a.Actor,
				Date:      date.String(),
				MarketIDs: markets,
				OwnerID:   owner,
			}
			for _, s := range statuses {
				req.Statuses = append(req.Statuses, domain.SessionStatus(s))
			}
			list, err := a.Sessions.List(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessionList(list, a.location(ctx)))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&owner, "owner", "", "Only sessions owned by this user (managers and admins)")
	cmd.Flags().StringSliceVar(&markets, "market", nil, "Only these markets (repeatable)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only these statuses: draft, active, finalized")
	return cmd
}
