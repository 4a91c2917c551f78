package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/marketshift/internal/aggregate"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/shopspring/decimal"
)

// FormatSummary renders per-market snapshots for one date with a totals row.
func FormatSummary(date string, snaps []domain.AggregateSnapshot) string {
	if len(snaps) == 0 {
		return RenderBox("Markets "+date, Dim("No scheduled markets and no sessions on this date."))
	}
	headers := []string{"MARKET", "SCHED", "ACTIVE>", "EMPLOYEES>", "TASKS>", "PUNCH IN>", "COLLECTED>", "#>"}
	rows := make([][]string, 0, len(snaps)+1)

	var active, employees, tasks, punched, count int
	total := decimal.Zero
	for _, s := range snaps {
		sched := Dim("no")
		if s.Scheduled {
			sched = StyleGreen.Render("yes")
		}
		n := aggregate.TotalTasks(s)
		rows = append(rows, []string{
			Bold(s.MarketID),
			sched,
			fmt.Sprintf("%d", s.ActiveSessions),
			fmt.Sprintf("%d", s.ActiveEmployees),
			fmt.Sprintf("%d", n),
			fmt.Sprintf("%d", s.TaskCounts[domain.TaskPunchIn]),
			s.CollectionsTotal.StringFixed(2),
			fmt.Sprintf("%d", s.CollectionsCount),
		})
		active += s.ActiveSessions
		employees += s.ActiveEmployees
		tasks += n
		punched += s.TaskCounts[domain.TaskPunchIn]
		count += s.CollectionsCount
		total = total.Add(s.CollectionsTotal)
	}
	rows = append(rows, []string{
		Dim("total"), "",
		fmt.Sprintf("%d", active),
		fmt.Sprintf("%d", employees),
		fmt.Sprintf("%d", tasks),
		fmt.Sprintf("%d", punched),
		Bold(total.StringFixed(2)),
		fmt.Sprintf("%d", count),
	})
	return RenderBox("Markets "+date, strings.TrimRight(RenderTable(headers, rows), "\n"))
}

// FormatLiveMarkets renders the markets scheduled for a date.
func FormatLiveMarkets(date string, markets []string) string {
	if len(markets) == 0 {
		return fmt.Sprintf("No markets scheduled on %s.\n", date)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Header("Live on "+date))
	for _, m := range markets {
		fmt.Fprintf(&b, "%s %s\n", StyleGreen.Render("●"), m)
	}
	return b.String()
}
