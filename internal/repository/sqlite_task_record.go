package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
)

// SQLiteTaskRecordRepo implements TaskRecordRepo using a SQLite database.
type SQLiteTaskRecordRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRecordRepo creates a new SQLiteTaskRecordRepo.
func NewSQLiteTaskRecordRepo(conn db.DBTX) *SQLiteTaskRecordRepo {
	return &SQLiteTaskRecordRepo{db: conn}
}

const taskRecordColumns = `id, session_id, task_type, payload, created_at, updated_at`

// openSessionGuard matches only while the referenced session is not finalized.
const openSessionGuard = `EXISTS (SELECT 1 FROM sessions s WHERE s.id = ? AND s.status != 'finalized')`

// Append checks the session and inserts in one statement, so a concurrent
// finalize either happens entirely before or entirely after the insert.
func (r *SQLiteTaskRecordRepo) Append(ctx context.Context, rec *domain.TaskRecord) error {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	query := `INSERT INTO task_records (` + taskRecordColumns + `)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE ` + openSessionGuard
	res, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		string(rec.TaskType),
		string(payload),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		rec.SessionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting %s record for session %s: %w", rec.TaskType, rec.SessionID, ErrConflict)
		}
		return fmt.Errorf("inserting task record: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("inserting task record for session %s", rec.SessionID))
}

func (r *SQLiteTaskRecordRepo) GetByID(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `SELECT ` + taskRecordColumns + ` FROM task_records WHERE id = ?`
	rec, err := scanTaskRecordRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning task record: %w", err)
	}
	return rec, nil
}

// UpdatePayload rewrites the payload of a mutable record on an open session.
func (r *SQLiteTaskRecordRepo) UpdatePayload(ctx context.Context, rec *domain.TaskRecord) error {
	query := `UPDATE task_records SET payload = ?, updated_at = ?
		WHERE id = ? AND task_type IN (` + inClause(len(domain.MutableTaskTypes())) + `)
		AND ` + openSessionGuard
	args := []any{string(rec.Payload), formatTime(rec.UpdatedAt), rec.ID}
	args = append(args, mutableTypeArgs()...)
	args = append(args, rec.SessionID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task record %s: %w", rec.ID, err)
	}
	return requireAffected(res, fmt.Sprintf("updating task record %s", rec.ID))
}

// Delete removes a mutable record while its session is open.
func (r *SQLiteTaskRecordRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM task_records
		WHERE id = ? AND task_type IN (` + inClause(len(domain.MutableTaskTypes())) + `)
		AND EXISTS (SELECT 1 FROM sessions s WHERE s.id = task_records.session_id AND s.status != 'finalized')`
	args := append([]any{id}, mutableTypeArgs()...)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting task record %s: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("deleting task record %s", id))
}

func (r *SQLiteTaskRecordRepo) Count(ctx context.Context, sessionID string, taskType domain.TaskType) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_records WHERE session_id = ? AND task_type = ?`,
		sessionID, string(taskType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s records: %w", taskType, err)
	}
	return n, nil
}

func (r *SQLiteTaskRecordRepo) CountByType(ctx context.Context, sessionID string) (map[domain.TaskType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT task_type, COUNT(*) FROM task_records WHERE session_id = ? GROUP BY task_type`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("counting records by type: %w", err)
	}
	defer rows.Close()

	counts := domain.ZeroTaskCounts()
	for rows.Next() {
		var tt string
		var n int
		if err := rows.Scan(&tt, &n); err != nil {
			return nil, fmt.Errorf("scanning type count: %w", err)
		}
		counts[domain.TaskType(tt)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating type counts: %w", err)
	}
	return counts, nil
}

func (r *SQLiteTaskRecordRepo) CountDistinctTypes(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT task_type) FROM task_records WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting distinct task types: %w", err)
	}
	return n, nil
}

func (r *SQLiteTaskRecordRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.TaskRecord, error) {
	query := `SELECT ` + taskRecordColumns + ` FROM task_records WHERE session_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing task records: %w", err)
	}
	defer rows.Close()
	return scanTaskRecords(rows)
}

func (r *SQLiteTaskRecordRepo) ListForDate(ctx context.Context, date time.Time, marketIDs []string) ([]*domain.TaskRecord, error) {
	query := `SELECT t.id, t.session_id, t.task_type, t.payload, t.created_at, t.updated_at
		FROM task_records t
		JOIN sessions s ON s.id = t.session_id
		WHERE s.session_date = ?`
	args := []any{formatDate(date)}
	query, args = appendInFilter(query, args, "s.market_id", marketIDs)
	query += ` ORDER BY t.created_at, t.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing task records for date: %w", err)
	}
	defer rows.Close()
	return scanTaskRecords(rows)
}

func scanTaskRecords(rows *sql.Rows) ([]*domain.TaskRecord, error) {
	var out []*domain.TaskRecord
	for rows.Next() {
		rec, err := scanTaskRecordRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task record row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task records: %w", err)
	}
	return out, nil
}

func scanTaskRecordRow(row rowScanner) (*domain.TaskRecord, error) {
	var rec domain.TaskRecord
	var tt, payload, createdAtStr, updatedAtStr string
	if err := row.Scan(&rec.ID, &rec.SessionID, &tt, &payload, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}
	var err error
	rec.TaskType = domain.TaskType(tt)
	rec.Payload = json.RawMessage(payload)
	if rec.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &rec, nil
}

func mutableTypeArgs() []any {
	types := domain.MutableTaskTypes()
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrPrecondition)
	}
	return nil
}
