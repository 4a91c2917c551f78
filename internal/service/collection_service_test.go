package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionService_Record(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.activeSession(t, employee, "mkt-a")
	sub := h.bus.Subscribe(notify.TableCollectionRecords)

	rec, err := h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee, SessionID: sess.ID, Amount: "125.50", Note: "stall fees"})
	require.NoError(t, err)
	assert.Equal(t, "125.50", rec.Amount.StringFixed(2))
	assert.Equal(t, "mkt-a", rec.MarketID)
	assert.Equal(t, "emp-1", rec.OwnerID)
	assert.Equal(t, sess.SessionDate, rec.CollectionDate)

	events := drain(sub)
	require.Len(t, events, 1)
	assert.Equal(t, rec.ID, events[0].RecordID)
	assert.Equal(t, notify.OpInsert, events[0].Op)

	list, err := h.collections.List(ctx, app.ListCollectionsRequest{Actor: employee, SessionID: sess.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "stall fees", list[0].Note)
}

func TestCollectionService_Record_RejectsBadAmounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.activeSession(t, employee, "mkt-a")

	for _, amount := range []string{"", "0", "-5", "1.234", "ten"} {
		t.Run(amount, func(t *testing.T) {
			_, err := h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee, SessionID: sess.ID, Amount: amount})
			var de *domain.Error
			require.ErrorAs(t, err, &de)
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, "amount", de.Field)
		})
	}
}

func TestCollectionService_Record_LockedAndForbidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.activeSession(t, employee, "mkt-a")

	_, err := h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee2, SessionID: sess.ID, Amount: "5"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.sessions.Finalize(ctx, app.SessionRequest{Actor: employee, SessionID: sess.ID})
	require.NoError(t, err)
	_, err = h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee, SessionID: sess.ID, Amount: "5"})
	assert.ErrorIs(t, err, domain.ErrSessionLocked)
}

func TestCollectionService_ListForDate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.activeSession(t, employee, "mkt-a")
	b := h.activeSession(t, employee2, "mkt-b")

	for _, r := range []app.RecordCollectionRequest{
		{Actor: employee, SessionID: a.ID, Amount: "10"},
		{Actor: employee2, SessionID: b.ID, Amount: "2.5"},
	} {
		_, err := h.collections.Record(ctx, r)
		require.NoError(t, err)
	}

	_, err := h.collections.List(ctx, app.ListCollectionsRequest{Actor: employee})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	all, err := h.collections.List(ctx, app.ListCollectionsRequest{Actor: manager})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "mkt-a", all[0].MarketID)

	onlyB, err := h.collections.List(ctx, app.ListCollectionsRequest{Actor: manager, Date: "2025-06-16", MarketIDs: []string{"mkt-b"}})
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "2.50", onlyB[0].Amount.StringFixed(2))

	_, err = h.collections.List(ctx, app.ListCollectionsRequest{Actor: employee2, SessionID: a.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
