package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newTaskCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Record and inspect a session's task ledger",
	}

	cmd.AddCommand(
		newTaskRecordCmd(a),
		newTaskUpdateCmd(a),
		newTaskRemoveCmd(a),
		newTaskListCmd(a),
		newTaskFeedbackCmd(a),
	)
	return cmd
}

func taskTypeNames() string {
	names := make([]string, len(domain.AllTaskTypes))
	for i, t := range domain.AllTaskTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func newTaskRecordCmd(a *App) *cobra.Command {
	var date dateValue
	var payload string

	cmd := &cobra.Command{
		Use:   "record TYPE [SESSION_ID]",
		Short: "Record a completed task",
		Long:  "Record a completed task. TYPE is one of: " + taskTypeNames() + ".",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args[1:], date.String())
			if err != nil {
				return err
			}
			rec, err := a.Ledger.Record(ctx, app.RecordTaskRequest{
				Actor:     a.Actor,
				SessionID: id,
				TaskType:  args[0],
				Payload:   json.RawMessage(payload),
			})
			if rec != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s\n", formatter.Bold(string(rec.TaskType)), formatter.Dim("("+rec.ID+")"))
			}
			return err
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&payload, "payload", "", "Task payload as a JSON object")
	return cmd
}

func newTaskUpdateCmd(a *App) *cobra.Command {
	var payload string

	cmd := &cobra.Command{
		Use:   "update RECORD_ID",
		Short: "Replace the payload of a feedback record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.Ledger.Update(cmd.Context(), app.UpdateTaskRequest{
				Actor:    a.Actor,
				RecordID: args[0],
				Payload:  json.RawMessage(payload),
			})
			if rec != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", formatter.Bold(string(rec.TaskType)), formatter.Dim("("+rec.ID+")"))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "New payload as a JSON object")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func newTaskRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove RECORD_ID",
		Short: "Remove a feedback record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.Ledger.Delete(cmd.Context(), app.DeleteTaskRequest{Actor: a.Actor, RecordID: args[0]})
			if err != nil && !errors.Is(err, domain.ErrNotification) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task record %s\n", args[0])
			return err
		},
	}
}

func newTaskListCmd(a *App) *cobra.Command {
	var date dateValue

	cmd := &cobra.Command{
		Use:   "list [SESSION_ID]",
		Short: "List a session's task records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args, date.String())
			if err != nil {
				return err
			}
			records, err := a.Ledger.List(ctx, app.SessionRequest{Actor: a.Actor, SessionID: id})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatLedger(records, a.location(ctx)))
			return nil
		},
	}

	addDateFlag(cmd.Flags(), &date)
	return cmd
}

// feedbackPayload is the JSON shape of a feedback record.
type feedbackPayload struct {
	Text   string `json:"text"`
	Rating int    `json:"rating,omitempty"`
}

func newTaskFeedbackCmd(a *App) *cobra.Command {
	var date dateValue
	var text string
	var rating int

	cmd := &cobra.Command{
		Use:   "feedback [SESSION_ID]",
		Short: "Record market feedback, prompting for it on a terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.resolveSessionID(ctx, args, date.String())
			if err != nil {
				return err
			}

			if text == "" {
				if !a.interactive() {
					return fmt.Errorf("--text is required when not running in a terminal")
				}
				ratingStr := strconv.Itoa(rating)
				if err := a.runForm(feedbackForm(&text, &ratingStr)); err != nil {
					return err
				}
				rating, _ = strconv.Atoi(ratingStr)
			}

			raw, err := json.Marshal(feedbackPayload{Text: strings.TrimSpace(text), Rating: rating})
			if err != nil {
				return fmt.Errorf("encoding feedback: %w", err)
			}
			rec, err := a.Ledger.Record(ctx, app.RecordTaskRequest{
				Actor:     a.Actor,
				SessionID: id,
				TaskType:  string(domain.TaskFeedback),
				Payload:   raw,
			})
			if rec != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded feedback %s\n", formatter.Dim("("+rec.ID+")"))
			}
			return err
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringVar(&text, "text", "", "Feedback text")
	cmd.Flags().IntVar(&rating, "rating", 0, "Market rating from 1 to 5")
	return cmd
}

// feedbackForm collects free-text feedback and an optional rating.
func feedbackForm(text, rating *string) *huh.Form {
	options := []huh.Option[string]{huh.NewOption("skip", "0")}
	for i := 1; i <= 5; i++ {
		options = append(options, huh.NewOption(strings.Repeat("★", i), strconv.Itoa(i)))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Feedback").
				Description("What happened at the market today?").
				Value(text).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("feedback cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Rating").
				Options(options...).
				Value(rating),
		),
	).WithTheme(marketshiftHuhTheme()).WithShowHelp(false)
}
