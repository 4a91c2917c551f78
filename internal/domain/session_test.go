package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)

func newActiveSession() *Session {
	s := NewSession("s-1", "u-1", "m-1", testNow, testNow)
	s.Status = SessionActive
	return s
}

func TestNewSession_NormalizesDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	s := NewSession("s-1", "u-1", "m-1", time.Date(2025, 6, 16, 23, 0, 0, 0, loc), testNow)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), s.SessionDate)
	assert.Equal(t, int(time.Monday), s.DayOfWeek)
	assert.Equal(t, SessionDraft, s.Status)
	assert.Equal(t, "2025-06-16", s.DateString())
	assert.True(t, s.IsOpen())
}

func TestActivate_FromDraft(t *testing.T) {
	s := NewSession("s-1", "u-1", "m-1", testNow, testNow)
	later := testNow.Add(time.Minute)
	require.NoError(t, s.Activate(later))
	assert.Equal(t, SessionActive, s.Status)
	assert.Equal(t, later, s.UpdatedAt)
}

func TestActivate_AlreadyActiveIsNoop(t *testing.T) {
	s := newActiveSession()
	before := s.UpdatedAt
	require.NoError(t, s.Activate(testNow.Add(time.Hour)))
	assert.Equal(t, before, s.UpdatedAt)
}

func TestActivate_Finalized(t *testing.T) {
	s := newActiveSession()
	require.NoError(t, s.Finalize(testNow))
	err := s.Activate(testNow)
	assert.True(t, errors.Is(err, ErrSessionLocked))
}

func TestPunchIn_RequiresActive(t *testing.T) {
	s := NewSession("s-1", "u-1", "m-1", testNow, testNow)
	err := s.PunchIn(testNow)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Nil(t, s.PunchInAt)
}

func TestPunchIn_Twice(t *testing.T) {
	s := newActiveSession()
	require.NoError(t, s.PunchIn(testNow))
	require.NotNil(t, s.PunchInAt)
	assert.Equal(t, testNow, *s.PunchInAt)

	err := s.PunchIn(testNow.Add(time.Minute))
	assert.True(t, errors.Is(err, ErrAlreadyPunchedIn))
	assert.Equal(t, testNow, *s.PunchInAt, "first punch-in must be kept")
}

func TestPunchOut_WithoutPunchIn(t *testing.T) {
	s := newActiveSession()
	err := s.PunchOut(testNow)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestPunchOut_KeepsStatus(t *testing.T) {
	s := newActiveSession()
	require.NoError(t, s.PunchIn(testNow))
	require.NoError(t, s.PunchOut(testNow.Add(4*time.Hour)))
	assert.Equal(t, SessionActive, s.Status)
	require.NotNil(t, s.PunchOutAt)

	err := s.PunchOut(testNow.Add(5 * time.Hour))
	assert.True(t, errors.Is(err, ErrAlreadyPunchedOut))
}

func TestFinalize_FromDraft(t *testing.T) {
	s := NewSession("s-1", "u-1", "m-1", testNow, testNow)
	err := s.Finalize(testNow)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, SessionDraft, s.Status)
}

func TestSession_GuardsDoNotMutate(t *testing.T) {
	draft := NewSession("s-1", "u-1", "m-1", testNow, testNow)
	assert.True(t, errors.Is(draft.CanPunchIn(), ErrInvalidTransition))
	assert.True(t, errors.Is(draft.CanFinalize(), ErrInvalidTransition))
	assert.True(t, errors.Is(draft.CanPunchOut(), ErrInvalidTransition))

	s := newActiveSession()
	require.NoError(t, s.CanPunchIn())
	require.NoError(t, s.CanFinalize())
	assert.Nil(t, s.PunchInAt)
	assert.Equal(t, SessionActive, s.Status)

	require.NoError(t, s.PunchIn(testNow))
	assert.True(t, errors.Is(s.CanPunchIn(), ErrAlreadyPunchedIn))
	require.NoError(t, s.CanPunchOut())

	require.NoError(t, s.Finalize(testNow))
	assert.True(t, errors.Is(s.CanPunchOut(), ErrSessionLocked))
}

func TestFinalize_LocksSession(t *testing.T) {
	s := newActiveSession()
	require.NoError(t, s.Finalize(testNow))
	assert.Equal(t, SessionFinalized, s.Status)
	require.NotNil(t, s.FinalizedAt)
	assert.False(t, s.IsOpen())

	for name, fn := range map[string]func(time.Time) error{
		"finalize":  s.Finalize,
		"punch_in":  s.PunchIn,
		"punch_out": s.PunchOut,
	} {
		err := fn(testNow)
		assert.Equal(t, KindSessionLocked, KindOf(err), name)
	}
}

func TestClone_Independent(t *testing.T) {
	s := newActiveSession()
	require.NoError(t, s.PunchIn(testNow))
	c := s.Clone()
	*c.PunchInAt = testNow.Add(time.Hour)
	assert.Equal(t, testNow, *s.PunchInAt)
}
