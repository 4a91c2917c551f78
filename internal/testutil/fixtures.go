package testutil

import (
	"encoding/json"
	"time"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestDate is a Monday.
var TestDate = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

// TestNow is mid-morning on TestDate.
var TestNow = time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)

// Session options
type SessionOption func(*domain.Session)

func WithStatus(s domain.SessionStatus) SessionOption {
	return func(sess *domain.Session) {
		sess.Status = s
		if s == domain.SessionFinalized && sess.FinalizedAt == nil {
			t := sess.CreatedAt
			sess.FinalizedAt = &t
		}
	}
}

func WithSessionDate(d time.Time) SessionOption {
	return func(sess *domain.Session) {
		y, m, day := d.Date()
		sess.SessionDate = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		sess.DayOfWeek = int(sess.SessionDate.Weekday())
	}
}

func WithPunchIn(t time.Time) SessionOption {
	return func(sess *domain.Session) {
		sess.PunchInAt = &t
	}
}

func WithPunchOut(t time.Time) SessionOption {
	return func(sess *domain.Session) {
		sess.PunchOutAt = &t
	}
}

func NewTestSession(ownerID, marketID string, opts ...SessionOption) *domain.Session {
	s := domain.NewSession(uuid.New().String(), ownerID, marketID, TestDate, TestNow)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Task options
type TaskOption func(*domain.TaskRecord)

func WithPayload(raw string) TaskOption {
	return func(r *domain.TaskRecord) {
		r.Payload = json.RawMessage(raw)
	}
}

func WithTaskCreatedAt(t time.Time) TaskOption {
	return func(r *domain.TaskRecord) {
		r.CreatedAt = t
		r.UpdatedAt = t
	}
}

func NewTestTask(sessionID string, taskType domain.TaskType, opts ...TaskOption) *domain.TaskRecord {
	r := &domain.TaskRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		TaskType:  taskType,
		Payload:   json.RawMessage(`{}`),
		CreatedAt: TestNow,
		UpdatedAt: TestNow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewTestCollection builds a collection for s. amount must be a valid decimal.
func NewTestCollection(s *domain.Session, amount string) *domain.CollectionRecord {
	return &domain.CollectionRecord{
		ID:             uuid.New().String(),
		SessionID:      s.ID,
		MarketID:       s.MarketID,
		OwnerID:        s.OwnerID,
		CollectionDate: s.SessionDate,
		Amount:         decimal.RequireFromString(amount),
		CreatedAt:      TestNow,
	}
}

// Settings options
type SettingsOption func(*domain.Settings)

func WithLocation(loc *time.Location) SettingsOption {
	return func(s *domain.Settings) {
		s.Windows.Location = loc
	}
}

func WithWindow(name, start, end string, graceMinutes int) SettingsOption {
	return func(s *domain.Settings) {
		s.Windows.Windows[name] = domain.Window{
			Name:         name,
			Start:        domain.MustTimeOfDay(start),
			End:          domain.MustTimeOfDay(end),
			GraceMinutes: graceMinutes,
		}
	}
}

func WithActionWindow(a domain.Action, window string) SettingsOption {
	return func(s *domain.Settings) {
		s.Actions[a] = window
	}
}

func WithTaskWindow(t domain.TaskType, window string) SettingsOption {
	return func(s *domain.Settings) {
		s.TaskWindows[t] = window
	}
}

func WithSchedule(marketID string, weekday time.Weekday, active bool) SettingsOption {
	return func(s *domain.Settings) {
		s.Schedules = append(s.Schedules, domain.MarketSchedule{MarketID: marketID, DayOfWeek: int(weekday), IsActive: active})
	}
}

func WithFinalizationOffset(days int) SettingsOption {
	return func(s *domain.Settings) {
		s.Windows.FinalizationOffsetDays = days
	}
}

// NewTestSettings returns UTC settings with no windows or schedules unless
// options add them.
func NewTestSettings(opts ...SettingsOption) *domain.Settings {
	s := domain.DefaultSettings()
	s.LoadedAt = TestNow
	for _, opt := range opts {
		opt(s)
	}
	return s
}
