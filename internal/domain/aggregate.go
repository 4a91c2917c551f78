package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregateSnapshot is the derived per-market, per-date rollup shown on
// dashboards. It is a pure projection and never stored.
type AggregateSnapshot struct {
	MarketID         string
	SessionDate      time.Time
	Scheduled        bool
	ActiveSessions   int
	ActiveEmployees  int
	TaskCounts       map[TaskType]int
	CollectionsTotal decimal.Decimal
	CollectionsCount int
}

// MarketActivity holds the raw counters one data source reports for a market
// on a date, before schedule merging.
type MarketActivity struct {
	MarketID         string
	SessionCount     int
	ActiveSessions   int
	ActiveEmployees  int
	TaskCounts       map[TaskType]int
	CollectionsTotal decimal.Decimal
	CollectionsCount int
}

// ZeroTaskCounts returns a map with every task type present and zero.
func ZeroTaskCounts() map[TaskType]int {
	m := make(map[TaskType]int, len(AllTaskTypes))
	for _, t := range AllTaskTypes {
		m[t] = 0
	}
	return m
}
