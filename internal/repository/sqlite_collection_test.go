package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionRepo_AppendAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	sess := testutil.NewTestSession("emp-1", "mkt-a", testutil.WithStatus(domain.SessionActive))
	require.NoError(t, NewSQLiteSessionRepo(database).Create(ctx, sess))
	repo := NewSQLiteCollectionRepo(database)

	c := testutil.NewTestCollection(sess, "125.50")
	c.Note = "stall 4"
	require.NoError(t, repo.Append(ctx, c))

	list, err := repo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "125.50", list[0].Amount.StringFixed(2))
	assert.Equal(t, "stall 4", list[0].Note)
	assert.Equal(t, "mkt-a", list[0].MarketID)
	assert.Equal(t, testutil.TestDate, list[0].CollectionDate)
}

func TestCollectionRepo_Append_FinalizedSessionRejected(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	sess := testutil.NewTestSession("emp-1", "mkt-a", testutil.WithStatus(domain.SessionFinalized))
	require.NoError(t, NewSQLiteSessionRepo(database).Create(ctx, sess))

	err := NewSQLiteCollectionRepo(database).Append(ctx, testutil.NewTestCollection(sess, "10"))
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestCollectionRepo_ListForDate_FiltersMarkets(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	sessions := NewSQLiteSessionRepo(database)
	repo := NewSQLiteCollectionRepo(database)

	a := testutil.NewTestSession("emp-1", "mkt-a")
	b := testutil.NewTestSession("emp-2", "mkt-b")
	require.NoError(t, sessions.Create(ctx, a))
	require.NoError(t, sessions.Create(ctx, b))
	require.NoError(t, repo.Append(ctx, testutil.NewTestCollection(a, "1.10")))
	require.NoError(t, repo.Append(ctx, testutil.NewTestCollection(b, "2.20")))

	all, err := repo.ListForDate(ctx, testutil.TestDate, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyB, err := repo.ListForDate(ctx, testutil.TestDate, []string{"mkt-b"})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "2.20", onlyB[0].Amount.StringFixed(2))

	none, err := repo.ListForDate(ctx, testutil.TestDate.AddDate(0, 0, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
