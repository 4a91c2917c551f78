package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/marketshift/internal/domain"
)

// FormatSession renders one session's detail box, times shown in loc.
func FormatSession(s *domain.Session, loc *time.Location) string {
	pairs := [][2]string{
		{"id", s.ID},
		{"market", Bold(s.MarketID)},
		{"owner", s.OwnerID},
		{"date", fmt.Sprintf("%s (%s)", s.DateString(), time.Weekday(s.DayOfWeek))},
		{"status", StatusPill(s.Status)},
		{"punch in", ClockTime(s.PunchInAt, loc)},
		{"punch out", ClockTime(s.PunchOutAt, loc)},
	}
	if s.FinalizedAt != nil {
		pairs = append(pairs, [2]string{"finalized", ClockTime(s.FinalizedAt, loc)})
	}
	return RenderBox("Session", KeyValues(pairs...))
}

// FormatSessionList renders sessions as a table.
func FormatSessionList(sessions []*domain.Session, loc *time.Location) string {
	if len(sessions) == 0 {
		return Dim("No sessions found.") + "\n"
	}
	headers := []string{"ID", "DATE", "MARKET", "OWNER", "STATUS", "IN", "OUT"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			TruncID(s.ID),
			s.DateString(),
			s.MarketID,
			s.OwnerID,
			StatusPill(s.Status),
			ClockTime(s.PunchInAt, loc),
			ClockTime(s.PunchOutAt, loc),
		})
	}
	return RenderBox(fmt.Sprintf("Sessions (%d)", len(sessions)), strings.TrimRight(RenderTable(headers, rows), "\n"))
}

// FormatTransition renders the one-line confirmation after a lifecycle step.
func FormatTransition(verb string, s *domain.Session, loc *time.Location) string {
	at := ""
	switch verb {
	case "punched in":
		at = " at " + ClockTime(s.PunchInAt, loc)
	case "punched out":
		at = " at " + ClockTime(s.PunchOutAt, loc)
	case "finalized":
		at = " at " + ClockTime(s.FinalizedAt, loc)
	}
	return fmt.Sprintf("%s %s %s%s %s\n",
		StyleGreen.Render("✔"), Bold(s.MarketID), verb, at, Dim("("+s.ID+")"))
}
