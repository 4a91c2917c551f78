package cli

import (
	"fmt"

	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/window"
	"github.com/spf13/cobra"
)

func newWindowCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Inspect configured time windows",
	}
	cmd.AddCommand(newWindowCheckCmd(a))
	return cmd
}

func newWindowCheckCmd(a *App) *cobra.Command {
	var date dateValue
	var action, task, at string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether an action or task upload is allowed at an instant",
		Example: `  marketshift window check --action punch_in
  marketshift window check --action finalize --date 2025-06-16 --at 10:45
  marketshift window check --task stall_search --at 16:30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.Settings == nil {
				return fmt.Errorf("no settings source configured")
			}
			ctx := cmd.Context()
			cfg, err := a.Settings.Snapshot(ctx)
			if err != nil {
				return err
			}
			loc := cfg.Windows.Loc()

			now := a.now()
			day := domain.LocalDate(now, loc)
			if date != "" {
				if day, err = domain.ParseDate(date.String()); err != nil {
					return err
				}
			}
			instant := now
			if at != "" {
				tod, err := domain.ParseTimeOfDay(at)
				if err != nil {
					return err
				}
				instant = tod.On(day, loc)
			}

			out := cmd.OutOrStdout()
			switch {
			case action != "":
				act := domain.Action(action)
				if act != domain.ActionPunchIn && act != domain.ActionFinalize {
					return domain.Validation("action", fmt.Sprintf("unknown action %q (punch_in, finalize)", action))
				}
				name, ok := cfg.WindowForAction(act)
				if !ok {
					fmt.Fprint(out, formatter.FormatUngated(action))
					return nil
				}
				var d window.Decision
				if act == domain.ActionFinalize {
					d = window.EvaluateDeadline(cfg.Windows, name, day, instant)
				} else {
					d = window.Evaluate(cfg.Windows, name, instant)
				}
				fmt.Fprint(out, formatter.FormatDecision(action, d, instant, loc))
			default:
				tt, err := domain.ParseTaskType(task)
				if err != nil {
					return err
				}
				name, ok := cfg.WindowForTask(tt)
				if !ok {
					fmt.Fprint(out, formatter.FormatUngated(task))
					return nil
				}
				fmt.Fprint(out, formatter.FormatDecision(task, window.Evaluate(cfg.Windows, name, instant), instant, loc))
			}
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&action, "action", "", "Lifecycle action: punch_in or finalize")
	cmd.Flags().StringVar(&task, "task", "", "Task type whose upload window to check")
	cmd.Flags().StringVar(&at, "at", "", "Time of day HH:MM[:SS] on --date (default now)")
	cmd.MarkFlagsMutuallyExclusive("action", "task")
	cmd.MarkFlagsOneRequired("action", "task")
	return cmd
}
