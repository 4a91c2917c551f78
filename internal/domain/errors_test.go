package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NewError(KindDuplicateTask, "punch_in already recorded")
	assert.True(t, errors.Is(err, ErrDuplicateTask))
	assert.False(t, errors.Is(err, ErrDuplicateSession))

	wrapped := fmt.Errorf("record: %w", err)
	assert.True(t, errors.Is(wrapped, ErrDuplicateTask))
	assert.Equal(t, KindDuplicateTask, KindOf(wrapped))
}

func TestError_CauseIsUnwrapped(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("insert session", cause)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Equal(t, "insert session: disk full", err.Error())
}

func TestKindOf_Foreign(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestErrorKind_Retryable(t *testing.T) {
	assert.True(t, KindStorage.Retryable())
	assert.True(t, KindNotification.Retryable())
	for _, k := range []ErrorKind{KindValidation, KindDuplicateSession, KindAlreadyPunchedIn, KindWindowClosed, KindSessionLocked} {
		assert.False(t, k.Retryable(), k)
	}
}

func TestValidation_CarriesField(t *testing.T) {
	err := Validation("market_id", "market_id is required")
	assert.Equal(t, "market_id", err.Field)
	assert.Equal(t, KindValidation, err.Kind)
}

func TestWindowDenied_CopiesBounds(t *testing.T) {
	b := WindowBounds{Name: "selfie_gps", Start: MustTimeOfDay("14:15"), End: MustTimeOfDay("14:20")}
	err := WindowDenied(KindWindowClosed, "closed", b)
	b.Name = "changed"
	assert.Equal(t, "selfie_gps", err.Window.Name)
}
