// Package aggregate holds the rollup arithmetic behind market summaries.
// The SQL fast path and the raw-record fallback both reduce their inputs to
// per-market activity and hand it to Assemble, so the two sources cannot
// drift apart.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alexanderramin/marketshift/internal/domain"
)

// MoneyPlaces is the number of fractional digits collection amounts carry.
const MoneyPlaces = 2

// Activity is per-market raw activity for one date, keyed by market id.
type Activity map[string]domain.MarketActivity

// Entry returns the activity for a market, creating a zeroed one.
func (a Activity) Entry(marketID string) domain.MarketActivity {
	if m, ok := a[marketID]; ok {
		return m
	}
	return domain.MarketActivity{
		MarketID:         marketID,
		TaskCounts:       domain.ZeroTaskCounts(),
		CollectionsTotal: decimal.Zero,
	}
}

// FromRecords reduces raw rows for a single date to per-market activity.
// Task records are attributed to markets through their session; records whose
// session is not in sessions are ignored.
func FromRecords(sessions []*domain.Session, tasks []*domain.TaskRecord, collections []*domain.CollectionRecord) Activity {
	out := make(Activity)
	marketOf := make(map[string]string, len(sessions))
	owners := make(map[string]map[string]bool)

	for _, s := range sessions {
		marketOf[s.ID] = s.MarketID
		m := out.Entry(s.MarketID)
		m.SessionCount++
		if s.Status == domain.SessionActive {
			m.ActiveSessions++
		}
		if s.Status == domain.SessionActive || s.Status == domain.SessionFinalized {
			if owners[s.MarketID] == nil {
				owners[s.MarketID] = make(map[string]bool)
			}
			owners[s.MarketID][s.OwnerID] = true
		}
		out[s.MarketID] = m
	}
	for marketID, set := range owners {
		m := out[marketID]
		m.ActiveEmployees = len(set)
		out[marketID] = m
	}

	for _, t := range tasks {
		marketID, ok := marketOf[t.SessionID]
		if !ok {
			continue
		}
		m := out[marketID]
		m.TaskCounts[t.TaskType]++
	}

	for _, c := range collections {
		m := out.Entry(c.MarketID)
		m.CollectionsTotal = m.CollectionsTotal.Add(c.Amount)
		m.CollectionsCount++
		out[c.MarketID] = m
	}
	return out
}

// Assemble builds snapshots for date. Candidates are markets with at least
// one session on date plus markets scheduled for date's weekday; when filter
// is non-empty only those markets are considered. Scheduled markets without
// activity appear with zero counts. Output is sorted by market id.
func Assemble(date time.Time, filter, scheduled []string, activity Activity) []domain.AggregateSnapshot {
	allowed := make(map[string]bool, len(filter))
	for _, id := range filter {
		allowed[id] = true
	}
	keep := func(id string) bool { return len(allowed) == 0 || allowed[id] }

	isScheduled := make(map[string]bool, len(scheduled))
	candidates := make(map[string]bool)
	for _, id := range scheduled {
		isScheduled[id] = true
		if keep(id) {
			candidates[id] = true
		}
	}
	for id, m := range activity {
		if m.SessionCount > 0 && keep(id) {
			candidates[id] = true
		}
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	y, mo, d := date.Date()
	day := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)

	out := make([]domain.AggregateSnapshot, 0, len(ids))
	for _, id := range ids {
		m := activity.Entry(id)
		counts := domain.ZeroTaskCounts()
		for t, n := range m.TaskCounts {
			if _, known := counts[t]; known {
				counts[t] = n
			}
		}
		out = append(out, domain.AggregateSnapshot{
			MarketID:         id,
			SessionDate:      day,
			Scheduled:        isScheduled[id],
			ActiveSessions:   m.ActiveSessions,
			ActiveEmployees:  m.ActiveEmployees,
			TaskCounts:       counts,
			CollectionsTotal: m.CollectionsTotal.Round(MoneyPlaces),
			CollectionsCount: m.CollectionsCount,
		})
	}
	return out
}

// TotalTasks sums all task counts in a snapshot.
func TotalTasks(s domain.AggregateSnapshot) int {
	n := 0
	for _, c := range s.TaskCounts {
		n += c
	}
	return n
}
