package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const racers = 8

// race runs fn from racers goroutines and tallies the error kinds returned.
func race(t *testing.T, fn func() error) map[domain.ErrorKind]int {
	t.Helper()
	var mu sync.Mutex
	tally := make(map[domain.ErrorKind]int)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kind := errKind(fn())
			mu.Lock()
			tally[kind]++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return tally
}

func TestConcurrentSessions_CreateSingleOpenSession(t *testing.T) {
	h := newHarness(t, withDB(testutil.NewFileTestDB(t)))
	ctx := context.Background()

	tally := race(t, func() error {
		_, err := h.sessions.Create(ctx, app.CreateSessionRequest{Actor: employee, MarketID: "mkt-a"})
		return err
	})

	assert.Equal(t, 1, tally[""])
	assert.Equal(t, racers-1, tally[domain.KindDuplicateSession])
}

func TestConcurrentSessions_PunchInOnce(t *testing.T) {
	h := newHarness(t, withDB(testutil.NewFileTestDB(t)))
	ctx := context.Background()
	sess := h.activeSession(t, employee, "mkt-a")

	tally := race(t, func() error {
		_, err := h.sessions.PunchIn(ctx, app.SessionRequest{Actor: employee, SessionID: sess.ID})
		return err
	})

	assert.Equal(t, 1, tally[""])
	assert.Equal(t, racers-1, tally[domain.KindAlreadyPunchedIn])

	n, err := h.taskRepo.Count(ctx, sess.ID, domain.TaskPunchIn)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, h.stored(t, sess.ID).Version)
}

func TestConcurrentSessions_TaskRecordVersusFinalize(t *testing.T) {
	h := newHarness(t, withDB(testutil.NewFileTestDB(t)))
	ctx := context.Background()
	sess := h.activeSession(t, employee, "mkt-a")

	var finalized atomic.Bool
	tally := race(t, func() error {
		if finalized.CompareAndSwap(false, true) {
			_, err := h.sessions.Finalize(ctx, app.SessionRequest{Actor: employee, SessionID: sess.ID})
			return err
		}
		_, err := h.ledger.Record(ctx, app.RecordTaskRequest{Actor: employee, SessionID: sess.ID, TaskType: "stall_search"})
		return err
	})

	// Every record either landed before the finalize or was refused as locked.
	assert.Equal(t, racers, tally[""]+tally[domain.KindSessionLocked])
	assert.Equal(t, domain.SessionFinalized, h.stored(t, sess.ID).Status)

	n, err := h.taskRepo.Count(ctx, sess.ID, domain.TaskStallSearch)
	require.NoError(t, err)
	assert.Equal(t, tally[""]-1, n, "successful finalize plus landed records")
}
