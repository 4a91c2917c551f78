package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scheduledSettings() *domain.Settings {
	return testutil.NewTestSettings(
		testutil.WithSchedule("mkt-a", time.Monday, true),
		testutil.WithSchedule("mkt-quiet", time.Monday, true),
		testutil.WithSchedule("mkt-off", time.Monday, false),
		testutil.WithSchedule("mkt-tue", time.Tuesday, true),
	)
}

// seedDay records activity at mkt-a and an unscheduled mkt-b through the
// services.
func seedDay(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()

	a1 := h.activeSession(t, employee, "mkt-a")
	_, err := h.sessions.PunchIn(ctx, app.SessionRequest{Actor: employee, SessionID: a1.ID})
	require.NoError(t, err)
	_, err = h.ledger.Record(ctx, app.RecordTaskRequest{Actor: employee, SessionID: a1.ID, TaskType: "stall_search"})
	require.NoError(t, err)
	_, err = h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee, SessionID: a1.ID, Amount: "10.10"})
	require.NoError(t, err)

	a2 := h.activeSession(t, employee2, "mkt-a")
	_, err = h.collections.Record(ctx, app.RecordCollectionRequest{Actor: employee2, SessionID: a2.ID, Amount: "0.90"})
	require.NoError(t, err)
	_, err = h.sessions.Finalize(ctx, app.SessionRequest{Actor: employee2, SessionID: a2.ID})
	require.NoError(t, err)

	// Draft sessions count toward presence but not toward active counters.
	_, err = h.sessions.Create(ctx, app.CreateSessionRequest{Actor: manager, MarketID: "mkt-b"})
	require.NoError(t, err)
}

func snapshotFor(t *testing.T, snaps []domain.AggregateSnapshot, market string) domain.AggregateSnapshot {
	t.Helper()
	for _, s := range snaps {
		if s.MarketID == market {
			return s
		}
	}
	t.Fatalf("no snapshot for %s", market)
	return domain.AggregateSnapshot{}
}

// assertSameSnapshots compares snapshots with amounts at money precision.
func assertSameSnapshots(t *testing.T, want, got []domain.AggregateSnapshot) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.MarketID, g.MarketID)
		assert.Equal(t, w.SessionDate, g.SessionDate)
		assert.Equal(t, w.Scheduled, g.Scheduled)
		assert.Equal(t, w.ActiveSessions, g.ActiveSessions, w.MarketID)
		assert.Equal(t, w.ActiveEmployees, g.ActiveEmployees, w.MarketID)
		assert.Equal(t, w.TaskCounts, g.TaskCounts, w.MarketID)
		assert.Equal(t, w.CollectionsTotal.StringFixed(2), g.CollectionsTotal.StringFixed(2), w.MarketID)
		assert.Equal(t, w.CollectionsCount, g.CollectionsCount, w.MarketID)
	}
}

func TestAggregationEngine_Summarize(t *testing.T) {
	h := newHarness(t, withSettings(scheduledSettings()))
	seedDay(t, h)

	snaps, err := h.engine.Summarize(context.Background(), app.SummaryRequest{Actor: manager})
	require.NoError(t, err)

	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.MarketID)
	}
	assert.Equal(t, []string{"mkt-a", "mkt-b", "mkt-quiet"}, ids)

	a := snapshotFor(t, snaps, "mkt-a")
	assert.True(t, a.Scheduled)
	assert.Equal(t, 1, a.ActiveSessions)
	assert.Equal(t, 2, a.ActiveEmployees, "finalized owners still count as employees")
	assert.Equal(t, 1, a.TaskCounts[domain.TaskPunchIn])
	assert.Equal(t, 1, a.TaskCounts[domain.TaskStallSearch])
	assert.Equal(t, "11.00", a.CollectionsTotal.StringFixed(2))
	assert.Equal(t, 2, a.CollectionsCount)

	b := snapshotFor(t, snaps, "mkt-b")
	assert.False(t, b.Scheduled)
	assert.Zero(t, b.ActiveSessions)
	assert.Zero(t, b.ActiveEmployees)

	quiet := snapshotFor(t, snaps, "mkt-quiet")
	assert.True(t, quiet.Scheduled)
	assert.Zero(t, quiet.ActiveSessions)
	assert.Len(t, quiet.TaskCounts, len(domain.AllTaskTypes))
	assert.True(t, quiet.CollectionsTotal.IsZero())
}

func TestAggregationEngine_Summarize_FilterAndOtherDay(t *testing.T) {
	h := newHarness(t, withSettings(scheduledSettings()))
	seedDay(t, h)
	ctx := context.Background()

	snaps, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: admin, MarketIDs: []string{"mkt-quiet", "mkt-tue"}})
	require.NoError(t, err)
	require.Len(t, snaps, 1, "mkt-tue is not scheduled on Monday")
	assert.Equal(t, "mkt-quiet", snaps[0].MarketID)

	tuesday, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: admin, Date: "2025-06-17"})
	require.NoError(t, err)
	require.Len(t, tuesday, 1)
	assert.Equal(t, "mkt-tue", tuesday[0].MarketID)
}

func TestAggregationEngine_FastPathMatchesRecords(t *testing.T) {
	database := testutil.NewTestDB(t)
	h := newHarness(t, withDB(database), withSettings(scheduledSettings()))
	seedDay(t, h)
	ctx := context.Background()

	slow := newHarness(t, withDB(database), withSettings(scheduledSettings()), withoutFastPath())

	fast, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: manager})
	require.NoError(t, err)
	recomputed, err := slow.engine.Summarize(ctx, app.SummaryRequest{Actor: manager})
	require.NoError(t, err)
	assertSameSnapshots(t, fast, recomputed)

	again, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: manager})
	require.NoError(t, err)
	assertSameSnapshots(t, fast, again)
}

func TestAggregationEngine_FallsBackWhenViewsUnavailable(t *testing.T) {
	database := testutil.NewTestDB(t)
	h := newHarness(t, withDB(database), withSettings(scheduledSettings()))
	seedDay(t, h)
	ctx := context.Background()

	want, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: manager})
	require.NoError(t, err)

	_, err = database.ExecContext(ctx, `DROP VIEW market_day_tasks`)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	engine := NewAggregationEngine(AggregationSources{
		View:        repository.NewSQLiteRollupView(database),
		Sessions:    repository.NewSQLiteSessionRepo(database),
		Tasks:       repository.NewSQLiteTaskRecordRepo(database),
		Collections: repository.NewSQLiteCollectionRepo(database),
	}, true, settings.Static{Settings: scheduledSettings()}, h.clock.Now, logger)

	got, err := engine.Summarize(ctx, app.SummaryRequest{Actor: manager})
	require.NoError(t, err)
	assertSameSnapshots(t, want, got)
	assert.Contains(t, logs.String(), "aggregation fast path unavailable")
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestAggregationEngine_Permissions(t *testing.T) {
	h := newHarness(t, withSettings(scheduledSettings()))
	ctx := context.Background()

	_, err := h.engine.Summarize(ctx, app.SummaryRequest{Actor: employee})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = h.engine.LiveMarkets(ctx, app.LiveMarketsRequest{Actor: employee})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.engine.Summarize(ctx, app.SummaryRequest{Actor: manager, Date: "June 16"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAggregationEngine_LiveMarkets(t *testing.T) {
	h := newHarness(t, withSettings(scheduledSettings()))
	ctx := context.Background()

	live, err := h.engine.LiveMarkets(ctx, app.LiveMarketsRequest{Actor: admin})
	require.NoError(t, err)
	assert.Equal(t, []string{"mkt-a", "mkt-quiet"}, live)

	live, err = h.engine.LiveMarkets(ctx, app.LiveMarketsRequest{Actor: admin, Date: "2025-06-17"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mkt-tue"}, live)

	live, err = h.engine.LiveMarkets(ctx, app.LiveMarketsRequest{Actor: admin, Date: "2025-06-18"})
	require.NoError(t, err)
	assert.Empty(t, live)
}
