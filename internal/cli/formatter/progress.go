package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/marketshift/internal/domain"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a bar like [████░░░░]  45% for pct in 0..100.
// Green above two thirds, yellow above one third, red below.
func RenderProgress(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	if width < 2 {
		width = 2
	}

	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	switch {
	case pct < 33:
		style = StyleRed
	case pct < 66:
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct)
}

// FormatProgress renders a session's per-type task checklist and completion bar.
func FormatProgress(p *domain.SessionProgress) string {
	var b strings.Builder
	b.WriteString(RenderProgress(p.CompletionPct, 18))
	b.WriteString(Dim(fmt.Sprintf("  %d of %d task types", p.DistinctTypes, len(domain.AllTaskTypes))))
	b.WriteString("\n\n")
	for _, t := range domain.AllTaskTypes {
		n := p.Counts[t]
		mark := Dim("○")
		if n > 0 {
			mark = StyleGreen.Render("●")
		}
		fmt.Fprintf(&b, "%s %-15s %s\n", mark, string(t), countLabel(n))
	}
	return b.String()
}

func countLabel(n int) string {
	if n == 0 {
		return Dim("-")
	}
	return fmt.Sprintf("%d", n)
}
