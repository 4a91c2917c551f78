package domain

import "time"

// Session is one owner's reporting shift for one market on one date.
type Session struct {
	ID          string
	OwnerID     string
	MarketID    string
	SessionDate time.Time // calendar date, UTC midnight
	DayOfWeek   int
	Status      SessionStatus
	PunchInAt   *time.Time
	PunchOutAt  *time.Time
	FinalizedAt *time.Time
	Version     int // bumped on every persisted transition
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSession builds a draft session for owner at market on date.
func NewSession(id, ownerID, marketID string, date time.Time, now time.Time) *Session {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &Session{
		ID:          id,
		OwnerID:     ownerID,
		MarketID:    marketID,
		SessionDate: day,
		DayOfWeek:   int(day.Weekday()),
		Status:      SessionDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOpen reports whether the session counts against the one-open-session
// per owner and date rule.
func (s *Session) IsOpen() bool {
	return s.Status == SessionDraft || s.Status == SessionActive
}

// AcceptsWrites returns SessionLocked once the session is finalized.
func (s *Session) AcceptsWrites() error {
	if s.Status == SessionFinalized {
		return NewError(KindSessionLocked, "session %s is finalized", s.ID)
	}
	return nil
}

// Activate moves draft to active. Activating an active session is a no-op.
func (s *Session) Activate(now time.Time) error {
	switch s.Status {
	case SessionActive:
		return nil
	case SessionFinalized:
		return s.AcceptsWrites()
	}
	s.Status = SessionActive
	s.UpdatedAt = now
	return nil
}

// CanPunchIn reports why the session cannot punch in, or nil. It checks
// state only; the attendance window is the caller's concern.
func (s *Session) CanPunchIn() error {
	if err := s.AcceptsWrites(); err != nil {
		return err
	}
	if s.Status != SessionActive {
		return NewError(KindInvalidTransition, "session %s must be active to punch in (status %s)", s.ID, s.Status)
	}
	if s.PunchInAt != nil {
		return NewError(KindAlreadyPunchedIn, "session %s already punched in at %s", s.ID, s.PunchInAt.Format(time.RFC3339))
	}
	return nil
}

// PunchIn stamps the fieldwork start. The session must be active and not
// yet punched in.
func (s *Session) PunchIn(now time.Time) error {
	if err := s.CanPunchIn(); err != nil {
		return err
	}
	s.PunchInAt = &now
	s.UpdatedAt = now
	return nil
}

func (s *Session) CanPunchOut() error {
	if err := s.AcceptsWrites(); err != nil {
		return err
	}
	if s.PunchInAt == nil {
		return NewError(KindInvalidTransition, "session %s has not punched in", s.ID)
	}
	if s.PunchOutAt != nil {
		return NewError(KindAlreadyPunchedOut, "session %s already punched out at %s", s.ID, s.PunchOutAt.Format(time.RFC3339))
	}
	return nil
}

// PunchOut stamps the fieldwork end. Status is unchanged.
func (s *Session) PunchOut(now time.Time) error {
	if err := s.CanPunchOut(); err != nil {
		return err
	}
	s.PunchOutAt = &now
	s.UpdatedAt = now
	return nil
}

// CanFinalize reports why the session cannot be finalized, or nil. The
// deadline is checked by the caller.
func (s *Session) CanFinalize() error {
	if err := s.AcceptsWrites(); err != nil {
		return err
	}
	if s.Status != SessionActive {
		return NewError(KindInvalidTransition, "session %s must be active to finalize (status %s)", s.ID, s.Status)
	}
	return nil
}

// Finalize locks an active session.
func (s *Session) Finalize(now time.Time) error {
	if err := s.CanFinalize(); err != nil {
		return err
	}
	s.Status = SessionFinalized
	s.FinalizedAt = &now
	s.UpdatedAt = now
	return nil
}

// DateString returns the session date as YYYY-MM-DD.
func (s *Session) DateString() string {
	return s.SessionDate.Format(DateLayout)
}

// Clone returns a copy safe to mutate independently.
func (s *Session) Clone() *Session {
	c := *s
	if s.PunchInAt != nil {
		t := *s.PunchInAt
		c.PunchInAt = &t
	}
	if s.PunchOutAt != nil {
		t := *s.PunchOutAt
		c.PunchOutAt = &t
	}
	if s.FinalizedAt != nil {
		t := *s.FinalizedAt
		c.FinalizedAt = &t
	}
	return &c
}
