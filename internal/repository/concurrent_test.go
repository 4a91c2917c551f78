package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const racers = 8

// TestConcurrentAccess_OneOpenSessionPerOwnerDate races session creation for
// the same owner and date across pool connections.
func TestConcurrentAccess_OneOpenSessionPerOwnerDate(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	repo := NewSQLiteSessionRepo(database)
	ctx := context.Background()

	var ok, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, testutil.NewTestSession("emp-1", "mkt-a"))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected create error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(racers-1), conflicts.Load())
}

// TestConcurrentAccess_CompareAndSwapSingleWinner races the same transition
// from the same starting version.
func TestConcurrentAccess_CompareAndSwapSingleWinner(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	repo := NewSQLiteSessionRepo(database)
	ctx := context.Background()

	sess := testutil.NewTestSession("emp-1", "mkt-a", testutil.WithStatus(domain.SessionActive))
	require.NoError(t, repo.Create(ctx, sess))

	var ok, stale atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine := sess.Clone()
			if err := mine.PunchIn(testutil.TestNow); err != nil {
				t.Errorf("punch in: %v", err)
				return
			}
			err := repo.CompareAndSwap(ctx, mine)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrStale):
				stale.Add(1)
			default:
				t.Errorf("unexpected cas error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(racers-1), stale.Load())

	stored, err := repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

// TestConcurrentAccess_SingletonRecordOnce races punch-in marker inserts.
func TestConcurrentAccess_SingletonRecordOnce(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()
	sess := testutil.NewTestSession("emp-1", "mkt-a", testutil.WithStatus(domain.SessionActive))
	require.NoError(t, NewSQLiteSessionRepo(database).Create(ctx, sess))
	tasks := NewSQLiteTaskRecordRepo(database)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tasks.Append(ctx, testutil.NewTestTask(sess.ID, domain.TaskPunchIn))
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("unexpected append error: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := tasks.Count(ctx, sess.ID, domain.TaskPunchIn)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestConcurrentAccess_AppendRacingFinalize checks that records written while
// a finalize is in flight either land before it or are rejected.
func TestConcurrentAccess_AppendRacingFinalize(t *testing.T) {
	database := testutil.NewFileTestDB(t)
	ctx := context.Background()
	sessions := NewSQLiteSessionRepo(database)
	tasks := NewSQLiteTaskRecordRepo(database)

	sess := testutil.NewTestSession("emp-1", "mkt-a", testutil.WithStatus(domain.SessionActive))
	require.NoError(t, sessions.Create(ctx, sess))

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				err := tasks.Append(ctx, testutil.NewTestTask(sess.ID, domain.TaskFeedback))
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrPrecondition):
				default:
					t.Errorf("unexpected append error: %v", err)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		final := sess.Clone()
		if err := final.Finalize(testutil.TestNow); err != nil {
			t.Errorf("finalize: %v", err)
			return
		}
		if err := sessions.CompareAndSwap(ctx, final); err != nil {
			t.Errorf("finalize cas: %v", err)
		}
	}()
	wg.Wait()

	n, err := tasks.Count(ctx, sess.ID, domain.TaskFeedback)
	require.NoError(t, err)
	assert.Equal(t, int(accepted.Load()), n)

	err = tasks.Append(ctx, testutil.NewTestTask(sess.ID, domain.TaskFeedback))
	assert.ErrorIs(t, err, ErrPrecondition)
}
