package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
)

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

const sessionColumns = `id, owner_id, market_id, session_date, day_of_week, status,
	punch_in_at, punch_out_at, finalized_at, version, created_at, updated_at`

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	query := `INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.OwnerID,
		s.MarketID,
		formatDate(s.SessionDate),
		s.DayOfWeek,
		string(s.Status),
		nullableTimeToString(s.PunchInAt, timeLayout),
		nullableTimeToString(s.PunchOutAt, timeLayout),
		nullableTimeToString(s.FinalizedAt, timeLayout),
		s.Version,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting session for owner %s on %s: %w", s.OwnerID, formatDate(s.SessionDate), ErrConflict)
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteSessionRepo) GetOpen(ctx context.Context, ownerID string, date time.Time) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE owner_id = ? AND session_date = ? AND status IN ('draft','active')`
	return r.scanSession(r.db.QueryRowContext(ctx, query, ownerID, formatDate(date)))
}

func (r *SQLiteSessionRepo) List(ctx context.Context, f SessionFilter) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1 = 1`
	var args []any
	if f.Date != nil {
		query += ` AND session_date = ?`
		args = append(args, formatDate(*f.Date))
	}
	if f.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, f.OwnerID)
	}
	query, args = appendInFilter(query, args, "market_id", f.MarketIDs)
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		query, args = appendInFilter(query, args, "status", statuses)
	}
	query += ` ORDER BY session_date DESC, market_id, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

// CompareAndSwap writes the mutable columns of s in one conditional UPDATE so
// the read-modify-write of a transition cannot interleave with another.
func (r *SQLiteSessionRepo) CompareAndSwap(ctx context.Context, s *domain.Session) error {
	query := `UPDATE sessions SET
		status = ?, punch_in_at = ?, punch_out_at = ?, finalized_at = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status),
		nullableTimeToString(s.PunchInAt, timeLayout),
		nullableTimeToString(s.PunchOutAt, timeLayout),
		nullableTimeToString(s.FinalizedAt, timeLayout),
		formatTime(s.UpdatedAt),
		s.ID,
		s.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("updating session %s: %w", s.ID, ErrConflict)
		}
		return fmt.Errorf("updating session %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session %s: %w", s.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s at version %d: %w", s.ID, s.Version, ErrStale)
	}
	s.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession scans a single session from a *sql.Row.
func (r *SQLiteSessionRepo) scanSession(row *sql.Row) (*domain.Session, error) {
	s, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return s, nil
}

// scanSessions scans multiple sessions from *sql.Rows.
func (r *SQLiteSessionRepo) scanSessions(rows *sql.Rows) ([]*domain.Session, error) {
	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSessionRow(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var status, dateStr, createdAtStr, updatedAtStr string
	var punchIn, punchOut, finalized sql.NullString

	err := row.Scan(
		&s.ID, &s.OwnerID, &s.MarketID, &dateStr, &s.DayOfWeek, &status,
		&punchIn, &punchOut, &finalized, &s.Version, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		return nil, err
	}
	return populateSession(&s, status, dateStr, createdAtStr, updatedAtStr, punchIn, punchOut, finalized)
}

// populateSession fills in parsed fields on a Session after scanning raw strings.
func populateSession(s *domain.Session, status, dateStr, createdAtStr, updatedAtStr string, punchIn, punchOut, finalized sql.NullString) (*domain.Session, error) {
	var err error
	s.Status = domain.SessionStatus(status)
	if s.SessionDate, err = parseDate("session_date", dateStr); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	s.PunchInAt = parseNullableTime(punchIn, timeLayout)
	s.PunchOutAt = parseNullableTime(punchOut, timeLayout)
	s.FinalizedAt = parseNullableTime(finalized, timeLayout)
	return s, nil
}
