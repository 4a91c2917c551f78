package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/service"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const defaultDashboardRefresh = 30 * time.Second

// ── Messages ─────────────────────────────────────────────────────────────────

type summaryLoadedMsg struct {
	snaps []domain.AggregateSnapshot
	err   error
	at    time.Time
}

// changeMsg carries one bus event. ok is false once the subscription closed.
type changeMsg struct {
	ev notify.ChangeEvent
	ok bool
}

type refreshTickMsg time.Time

// ── Key bindings ─────────────────────────────────────────────────────────────

type dashboardKeys struct {
	Refresh key.Binding
	Quit    key.Binding
}

func defaultDashboardKeys() dashboardKeys {
	return dashboardKeys{
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// ── Model ────────────────────────────────────────────────────────────────────

// dashboardModel shows the per-market rollup for one date. It re-queries the
// aggregation engine whenever a change event for that date arrives on the
// bus, and on a fixed interval to pick up writes from other processes.
type dashboardModel struct {
	ctx     context.Context
	engine  service.AggregationEngine
	actor   app.Actor
	date    string
	markets []string
	now     func() time.Time

	sub     *notify.Subscription
	refresh time.Duration

	spinner spinner.Model
	keys    dashboardKeys

	snaps     []domain.AggregateSnapshot
	err       error
	loading   bool
	updatedAt time.Time
	changes   int
	stopped   bool
	quitting  bool
}

func newDashboardModel(ctx context.Context, a *App, date string, markets []string) *dashboardModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(formatter.StyleHeader))
	refresh := a.DashboardRefresh
	if refresh <= 0 {
		refresh = defaultDashboardRefresh
	}
	m := &dashboardModel{
		ctx:     ctx,
		engine:  a.Aggregation,
		actor:   a.Actor,
		date:    date,
		markets: markets,
		now:     a.now,
		refresh: refresh,
		spinner: sp,
		keys:    defaultDashboardKeys(),
		loading: true,
	}
	if a.Changes != nil {
		m.sub = a.Changes.Subscribe()
	}
	return m
}

// close releases the bus subscription.
func (m *dashboardModel) close() {
	if m.sub != nil {
		m.sub.Close()
	}
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.waitForChange(), m.tick())
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.reload()
		}

	case summaryLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.snaps = msg.snaps
			m.updatedAt = msg.at
		}
		return m, nil

	case changeMsg:
		if !msg.ok {
			m.stopped = true
			return m, nil
		}
		if !m.concerns(msg.ev) {
			return m, m.waitForChange()
		}
		m.changes++
		return m, tea.Batch(m.reload(), m.waitForChange())

	case refreshTickMsg:
		return m, tea.Batch(m.reload(), m.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(formatter.Header("Market dashboard " + m.date))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(formatter.FormatError(m.err))
		b.WriteString("\n")
	case m.loading && m.updatedAt.IsZero():
		b.WriteString(m.spinner.View() + " Loading rollup...\n")
	default:
		b.WriteString(formatter.FormatSummary(m.date, m.snaps))
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *dashboardModel) footer() string {
	var parts []string
	if m.loading && !m.updatedAt.IsZero() {
		parts = append(parts, m.spinner.View()+" refreshing")
	} else if !m.updatedAt.IsZero() {
		parts = append(parts, "updated "+formatter.Since(m.updatedAt, m.now()))
	}
	parts = append(parts, fmt.Sprintf("%d changes", m.changes))
	switch {
	case m.sub == nil || m.stopped:
		parts = append(parts, "live updates off")
	case m.sub.Dropped() > 0:
		parts = append(parts, fmt.Sprintf("%d events dropped", m.sub.Dropped()))
	}
	for _, k := range []key.Binding{m.keys.Refresh, m.keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return formatter.Dim(strings.Join(parts, " · "))
}

// concerns reports whether ev can change this dashboard's rollup.
func (m *dashboardModel) concerns(ev notify.ChangeEvent) bool {
	if ev.SessionDate.IsZero() {
		return true
	}
	if ev.SessionDate.Format(domain.DateLayout) != m.date {
		return false
	}
	if len(m.markets) == 0 || ev.MarketID == "" {
		return true
	}
	for _, id := range m.markets {
		if id == ev.MarketID {
			return true
		}
	}
	return false
}

// ── Commands ─────────────────────────────────────────────────────────────────

func (m *dashboardModel) reload() tea.Cmd {
	m.loading = true
	return m.load()
}

func (m *dashboardModel) load() tea.Cmd {
	ctx, engine, actor, date, markets, now := m.ctx, m.engine, m.actor, m.date, m.markets, m.now
	return func() tea.Msg {
		snaps, err := engine.Summarize(ctx, app.SummaryRequest{Actor: actor, Date: date, MarketIDs: markets})
		return summaryLoadedMsg{snaps: snaps, err: err, at: now()}
	}
}

func (m *dashboardModel) waitForChange() tea.Cmd {
	if m.sub == nil || m.stopped {
		return nil
	}
	events := m.sub.Events()
	return func() tea.Msg {
		ev, ok := <-events
		return changeMsg{ev: ev, ok: ok}
	}
}

func (m *dashboardModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshTickMsg(t) })
}

// ── Command ──────────────────────────────────────────────────────────────────

func newDashboardCmd(a *App) *cobra.Command {
	var date dateValue
	var markets []string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live per-market rollup that refreshes as reports come in",
		Long: `Live per-market rollup that refreshes as reports come in.

When stdout is not a terminal the rollup is printed once, like "summary".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day := a.displayDate(ctx, date.String())

			if !a.interactive() {
				snaps, err := a.Aggregation.Summarize(ctx, app.SummaryRequest{Actor: a.Actor, Date: day, MarketIDs: markets})
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSummary(day, snaps))
				return nil
			}

			m := newDashboardModel(ctx, a, day, markets)
			defer m.close()
			if a.RunDashboard != nil {
				return a.RunDashboard(m)
			}
			_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	addDateFlag(cmd.Flags(), &date)
	cmd.Flags().StringSliceVar(&markets, "market", nil, "Only these markets (repeatable)")
	return cmd
}
