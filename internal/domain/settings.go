package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for session dates.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time in the organization timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("time of day %q must be HH:MM or HH:MM:SS", s)
	}
	vals := make([]int, 3)
	limits := []int{23, 59, 59}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, fmt.Errorf("time of day %q is out of range", s)
		}
		vals[i] = n
	}
	return TimeOfDay{Hour: vals[0], Minute: vals[1], Second: vals[2]}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Offset returns the duration since local midnight.
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute + time.Duration(t.Second)*time.Second
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.Offset() < o.Offset()
}

func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant at this time of day on the calendar date of d in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, t.Hour, t.Minute, t.Second, 0, loc)
}

// Window is one named, configured time-of-day interval.
type Window struct {
	Name         string
	Start        TimeOfDay
	End          TimeOfDay
	GraceMinutes int
}

func (w Window) Grace() time.Duration {
	return time.Duration(w.GraceMinutes) * time.Minute
}

// SpansMidnight reports whether the nominal end falls on the next day.
func (w Window) SpansMidnight() bool {
	return w.End.Before(w.Start)
}

// TimeWindowConfig is the organization-wide window configuration.
type TimeWindowConfig struct {
	Location               *time.Location
	Windows                map[string]Window
	FinalizationOffsetDays int
}

// Loc returns the organization timezone, UTC when unset.
func (c TimeWindowConfig) Loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Lookup finds a window by name.
func (c TimeWindowConfig) Lookup(name string) (Window, bool) {
	w, ok := c.Windows[name]
	return w, ok
}

// MarketSchedule declares whether a market runs reporting on a weekday
// (0 = Sunday ... 6 = Saturday).
type MarketSchedule struct {
	MarketID  string
	DayOfWeek int
	IsActive  bool
}

// Settings is one point-in-time snapshot of organization configuration.
// Snapshots are immutable once built.
type Settings struct {
	Windows     TimeWindowConfig
	Actions     map[Action]string
	TaskWindows map[TaskType]string
	Schedules   []MarketSchedule
	LoadedAt    time.Time
}

// DefaultSettings is the snapshot used when no settings file exists.
func DefaultSettings() *Settings {
	return &Settings{
		Windows: TimeWindowConfig{
			Location:               time.UTC,
			Windows:                map[string]Window{},
			FinalizationOffsetDays: 1,
		},
		Actions:     map[Action]string{},
		TaskWindows: map[TaskType]string{},
	}
}

// WindowForAction returns the window bound to an action, if any.
func (s *Settings) WindowForAction(a Action) (string, bool) {
	name, ok := s.Actions[a]
	return name, ok && name != ""
}

// WindowForTask returns the upload window bound to a task type, if any.
func (s *Settings) WindowForTask(t TaskType) (string, bool) {
	name, ok := s.TaskWindows[t]
	return name, ok && name != ""
}

// ActiveMarkets returns the sorted ids of markets scheduled on weekday.
func (s *Settings) ActiveMarkets(weekday time.Weekday) []string {
	seen := make(map[string]bool)
	for _, ms := range s.Schedules {
		if ms.DayOfWeek == int(weekday) && ms.IsActive {
			seen[ms.MarketID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LocalDate returns the calendar date of t in loc as a UTC midnight value.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, Validation("date", fmt.Sprintf("date %q must be YYYY-MM-DD", s))
	}
	return d, nil
}
