package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/aggregate"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
)

// SQLiteRollupView implements RollupView over the market_day_* views.
type SQLiteRollupView struct {
	db db.DBTX
}

// NewSQLiteRollupView creates a new SQLiteRollupView.
func NewSQLiteRollupView(conn db.DBTX) *SQLiteRollupView {
	return &SQLiteRollupView{db: conn}
}

func (v *SQLiteRollupView) MarketActivity(ctx context.Context, date time.Time, marketIDs []string) (aggregate.Activity, error) {
	out := make(aggregate.Activity)
	day := formatDate(date)

	if err := v.readSessions(ctx, day, marketIDs, out); err != nil {
		return nil, err
	}
	if err := v.readTasks(ctx, day, marketIDs, out); err != nil {
		return nil, err
	}
	if err := v.readCollections(ctx, day, marketIDs, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (v *SQLiteRollupView) readSessions(ctx context.Context, day string, marketIDs []string, out aggregate.Activity) error {
	query := `SELECT market_id, session_count, active_sessions, active_employees
		FROM market_day_sessions WHERE session_date = ?`
	query, args := appendInFilter(query, []any{day}, "market_id", marketIDs)
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading market_day_sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketID string
		var sessions, active, employees int
		if err := rows.Scan(&marketID, &sessions, &active, &employees); err != nil {
			return fmt.Errorf("scanning market_day_sessions: %w", err)
		}
		m := out.Entry(marketID)
		m.SessionCount = sessions
		m.ActiveSessions = active
		m.ActiveEmployees = employees
		out[marketID] = m
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating market_day_sessions: %w", err)
	}
	return nil
}

func (v *SQLiteRollupView) readTasks(ctx context.Context, day string, marketIDs []string, out aggregate.Activity) error {
	query := `SELECT market_id, task_type, task_count
		FROM market_day_tasks WHERE session_date = ?`
	query, args := appendInFilter(query, []any{day}, "market_id", marketIDs)
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading market_day_tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketID, taskType string
		var n int
		if err := rows.Scan(&marketID, &taskType, &n); err != nil {
			return fmt.Errorf("scanning market_day_tasks: %w", err)
		}
		m := out.Entry(marketID)
		m.TaskCounts[domain.TaskType(taskType)] = n
		out[marketID] = m
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating market_day_tasks: %w", err)
	}
	return nil
}

func (v *SQLiteRollupView) readCollections(ctx context.Context, day string, marketIDs []string, out aggregate.Activity) error {
	query := `SELECT market_id, total_minor, collection_count
		FROM market_day_collections WHERE collection_date = ?`
	query, args := appendInFilter(query, []any{day}, "market_id", marketIDs)
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reading market_day_collections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var marketID string
		var totalMinor int64
		var n int
		if err := rows.Scan(&marketID, &totalMinor, &n); err != nil {
			return fmt.Errorf("scanning market_day_collections: %w", err)
		}
		m := out.Entry(marketID)
		m.CollectionsTotal = fromMinor(totalMinor)
		m.CollectionsCount = n
		out[marketID] = m
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating market_day_collections: %w", err)
	}
	return nil
}
