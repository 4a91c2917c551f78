package formatter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/window"
)

// FormatDecision renders a window evaluation for subject (an action or a
// task type) at the given instant.
func FormatDecision(subject string, d window.Decision, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	verdict := StyleGreen.Render("● allowed")
	if !d.Allowed {
		verdict = StyleRed.Render("● denied") + Dim(" ("+string(d.Reason)+")")
	}
	pairs := [][2]string{
		{"subject", Bold(subject)},
		{"at", at.In(loc).Format("2006-01-02 15:04:05 MST")},
		{"result", verdict},
	}
	if d.Bounds.Name != "" {
		pairs = append(pairs, [2]string{"window", d.Bounds.Name})
	}
	if !d.Bounds.OpensAt.IsZero() {
		pairs = append(pairs,
			[2]string{"span", fmt.Sprintf("%s-%s (+%s grace)", d.Bounds.Start, d.Bounds.End, d.Bounds.Grace)},
			[2]string{"opens", d.Bounds.OpensAt.In(loc).Format("2006-01-02 15:04:05")},
			[2]string{"closes", d.Bounds.ClosesAt.In(loc).Format("2006-01-02 15:04:05")},
		)
	}
	if !d.LastClosedAt.IsZero() {
		pairs = append(pairs, [2]string{"last closed", d.LastClosedAt.In(loc).Format("2006-01-02 15:04:05")})
	}
	return RenderBox("Window check", KeyValues(pairs...))
}

// FormatUngated renders the result for a subject with no window binding.
func FormatUngated(subject string) string {
	return fmt.Sprintf("%s %s is not bound to a window; always allowed\n", StyleGreen.Render("●"), Bold(subject))
}

// FormatError renders err for the terminal, leading with its kind when it is
// a workflow error.
func FormatError(err error) string {
	var de *domain.Error
	if !errors.As(err, &de) {
		return StyleRed.Render("Error:") + " " + err.Error()
	}
	var b strings.Builder
	b.WriteString(KindStyle(de.Kind).Render(string(de.Kind)))
	b.WriteString(" ")
	b.WriteString(de.Error())
	if de.Window != nil && !de.Window.OpensAt.IsZero() && de.Kind == domain.KindWindowClosed {
		b.WriteString("\n  " + Dim("next opening "+de.Window.OpensAt.Format(time.RFC3339)))
	}
	if de.Kind.Retryable() {
		b.WriteString("\n  " + Dim("this failure is transient; retrying may succeed"))
	}
	return b.String()
}
