package cli

import (
	"context"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/service"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// Subscriber hands out change-event subscriptions. *notify.Bus satisfies it.
type Subscriber interface {
	Subscribe(tables ...notify.Table) *notify.Subscription
}

// App holds references to all services used by CLI commands.
type App struct {
	Sessions    service.SessionManager
	Ledger      service.TaskLedger
	Collections service.CollectionService
	Aggregation service.AggregationEngine
	Settings    settings.Source
	Changes     Subscriber

	// Actor is the identity supplied by the environment. --user and --role
	// override it per invocation.
	Actor app.Actor

	// Now defaults to time.Now.
	Now func() time.Time
	// DashboardRefresh is the dashboard's polling interval.
	DashboardRefresh time.Duration

	// IsInteractive reports whether stdin is a terminal. Forms and the live
	// dashboard are only used when it returns true.
	IsInteractive func() bool
	// RunForm runs a huh form; tests replace it.
	RunForm func(*huh.Form) error
	// RunDashboard runs the dashboard program; tests replace it.
	RunDashboard func(*dashboardModel) error
}

// NewRootCmd creates the top-level "marketshift" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *App) *cobra.Command {
	var user, role string

	root := &cobra.Command{
		Use:           "marketshift",
		Short:         "Market field-reporting sessions, task ledgers and live rollups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if user != "" {
				a.Actor.ID = user
			}
			if role != "" {
				a.Actor.Role = domain.Role(role)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&user, "user", "", "Act as this user id (overrides MARKETSHIFT_USER)")
	root.PersistentFlags().StringVar(&role, "role", "", "Act with this role: employee, manager or admin")

	root.AddCommand(
		newSessionCmd(a),
		newTaskCmd(a),
		newCollectionCmd(a),
		newSummaryCmd(a),
		newMarketsCmd(a),
		newWindowCmd(a),
		newDashboardCmd(a),
	)
	return root
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) runForm(f *huh.Form) error {
	if a.RunForm != nil {
		return a.RunForm(f)
	}
	return f.Run()
}

// location returns the organization timezone for rendering times.
func (a *App) location(ctx context.Context) *time.Location {
	if a.Settings == nil {
		return time.UTC
	}
	cfg, err := a.Settings.Snapshot(ctx)
	if err != nil {
		return time.UTC
	}
	return cfg.Windows.Loc()
}

// resolveSessionID returns the explicit id argument, or the actor's open
// session for date when none is given.
func (a *App) resolveSessionID(ctx context.Context, args []string, date string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	sess, err := a.Sessions.OpenFor(ctx, app.OpenSessionRequest{Actor: a.Actor, Date: date})
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}
