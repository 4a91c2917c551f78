package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/shopspring/decimal"
)

const payloadPreview = 40

// FormatLedger renders a session's task records in recording order.
func FormatLedger(records []*domain.TaskRecord, loc *time.Location) string {
	if len(records) == 0 {
		return Dim("No task records yet.") + "\n"
	}
	headers := []string{"ID", "TYPE", "RECORDED", "PAYLOAD"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		typ := string(r.TaskType)
		if r.TaskType.Mutable() {
			typ = StylePurple.Render(typ)
		}
		rows = append(rows, []string{
			TruncID(r.ID),
			typ,
			ClockTime(&r.CreatedAt, loc),
			Dim(preview(string(r.Payload))),
		})
	}
	return RenderBox(fmt.Sprintf("Tasks (%d)", len(records)), strings.TrimRight(RenderTable(headers, rows), "\n"))
}

// FormatCollections renders collection records with a total line.
func FormatCollections(records []*domain.CollectionRecord) string {
	if len(records) == 0 {
		return Dim("No collections recorded.") + "\n"
	}
	headers := []string{"ID", "DATE", "MARKET", "OWNER", "AMOUNT>", "NOTE"}
	rows := make([][]string, 0, len(records))
	total := decimal.Zero
	for _, c := range records {
		total = total.Add(c.Amount)
		rows = append(rows, []string{
			TruncID(c.ID),
			c.CollectionDate.Format(domain.DateLayout),
			c.MarketID,
			c.OwnerID,
			c.Amount.StringFixed(2),
			Dim(preview(c.Note)),
		})
	}
	body := strings.TrimRight(RenderTable(headers, rows), "\n")
	body += "\n\n" + KeyValues([2]string{"total", Bold(total.StringFixed(2))})
	return RenderBox(fmt.Sprintf("Collections (%d)", len(records)), body)
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > payloadPreview {
		return s[:payloadPreview-3] + "..."
	}
	return s
}
