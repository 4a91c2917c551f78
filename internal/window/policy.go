// Package window evaluates whether an action is permitted at an instant
// against the organization's configured time-of-day windows. Every function
// takes the clock reading as a parameter and has no side effects.
package window

import (
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/domain"
)

const day = 24 * time.Hour

type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotConfigured Reason = "window_not_configured"
	ReasonOutsideWindow Reason = "outside_window"
	ReasonPastDeadline  Reason = "past_deadline"
)

// Decision is the result of one evaluation. Bounds describe the occurrence
// that contains now when allowed, or the next occurrence when denied.
type Decision struct {
	Allowed bool
	Reason  Reason
	Bounds  domain.WindowBounds
	// LastClosedAt is the end of the most recent occurrence before now,
	// zero when unknown or when allowed.
	LastClosedAt time.Time
}

// Err converts a denial into a workflow error of the given kind. It returns
// nil for an allowed decision.
func (d Decision) Err(kind domain.ErrorKind) error {
	if d.Allowed {
		return nil
	}
	var msg string
	switch d.Reason {
	case ReasonNotConfigured:
		msg = fmt.Sprintf("window %q is not configured", d.Bounds.Name)
	case ReasonPastDeadline:
		msg = fmt.Sprintf("window %s closed at %s", d.Bounds.Name, d.Bounds.ClosesAt.Format(time.RFC3339))
	default:
		msg = fmt.Sprintf("window %s (%s-%s) is closed; next opens at %s",
			d.Bounds.Name, d.Bounds.Start, d.Bounds.End, d.Bounds.OpensAt.Format(time.RFC3339))
	}
	return domain.WindowDenied(kind, msg, d.Bounds)
}

// Evaluate reports whether now falls inside the named window, extended by its
// grace period. A window whose end is before its start spans midnight.
// Both bounds are inclusive.
//
// Windows are wall-clock ranges in the organization timezone. On a daylight
// saving change the window still opens and closes at its configured local
// times, so its real length grows or shrinks by the shift, and a local time
// that occurs twice is inside the window both times.
func Evaluate(cfg domain.TimeWindowConfig, name string, now time.Time) Decision {
	w, ok := cfg.Lookup(name)
	if !ok {
		return Decision{Reason: ReasonNotConfigured, Bounds: domain.WindowBounds{Name: name}}
	}
	loc := cfg.Loc()
	local := now.In(loc)
	bounds := domain.WindowBounds{Name: name, Start: w.Start, End: w.End, Grace: w.Grace()}

	length := mod(w.End.Offset()-w.Start.Offset()) + w.Grace()
	elapsed := mod(wallOffset(local) - w.Start.Offset())

	if length >= day || elapsed <= length {
		opens := w.Start.On(local, loc)
		if local.Before(opens) {
			opens = w.Start.On(local.AddDate(0, 0, -1), loc)
		}
		bounds.OpensAt = opens
		bounds.ClosesAt = wallClose(w, length, opens, loc)
		return Decision{Allowed: true, Bounds: bounds}
	}

	next := w.Start.On(local, loc)
	if !next.After(local) {
		next = w.Start.On(local.AddDate(0, 0, 1), loc)
	}
	bounds.OpensAt = next
	bounds.ClosesAt = wallClose(w, length, next, loc)
	return Decision{
		Reason:       ReasonOutsideWindow,
		Bounds:       bounds,
		LastClosedAt: wallClose(w, length, w.Start.On(next.AddDate(0, 0, -1), loc), loc),
	}
}

// Deadline returns the finalization cutoff for a session date: the named
// window's end plus grace, on session date plus the configured offset days,
// in the organization timezone. An end that precedes the start is read as
// falling on the following day.
func Deadline(cfg domain.TimeWindowConfig, name string, sessionDate time.Time) (domain.WindowBounds, bool) {
	w, ok := cfg.Lookup(name)
	if !ok {
		return domain.WindowBounds{Name: name}, false
	}
	loc := cfg.Loc()
	y, m, d := sessionDate.Date()
	base := time.Date(y, m, d+cfg.FinalizationOffsetDays, 0, 0, 0, 0, loc)
	opens := w.Start.On(base, loc)
	end := w.End.On(base, loc)
	if w.SpansMidnight() {
		end = w.End.On(base.AddDate(0, 0, 1), loc)
	}
	return domain.WindowBounds{
		Name:     name,
		Start:    w.Start,
		End:      w.End,
		Grace:    w.Grace(),
		OpensAt:  opens,
		ClosesAt: end.Add(w.Grace()),
	}, true
}

// EvaluateDeadline allows an action up to and including the deadline for
// sessionDate. There is no lower bound.
func EvaluateDeadline(cfg domain.TimeWindowConfig, name string, sessionDate, now time.Time) Decision {
	bounds, ok := Deadline(cfg, name, sessionDate)
	if !ok {
		return Decision{Reason: ReasonNotConfigured, Bounds: bounds}
	}
	if now.After(bounds.ClosesAt) {
		return Decision{Reason: ReasonPastDeadline, Bounds: bounds, LastClosedAt: bounds.ClosesAt}
	}
	return Decision{Allowed: true, Bounds: bounds}
}

// wallClose returns when the occurrence opening at opens closes, counting
// length on the local wall clock from the window's start.
func wallClose(w domain.Window, length time.Duration, opens time.Time, loc *time.Location) time.Time {
	y, m, d := opens.In(loc).Date()
	end := w.Start.Offset() + length
	return time.Date(y, m, d, 0, 0, int(end/time.Second), int(end%time.Second), loc)
}

func wallOffset(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func mod(d time.Duration) time.Duration {
	d %= day
	if d < 0 {
		d += day
	}
	return d
}
