package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/aggregate"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/shopspring/decimal"
)

// SQLiteCollectionRepo implements CollectionRepo using a SQLite database.
type SQLiteCollectionRepo struct {
	db db.DBTX
}

// NewSQLiteCollectionRepo creates a new SQLiteCollectionRepo.
func NewSQLiteCollectionRepo(conn db.DBTX) *SQLiteCollectionRepo {
	return &SQLiteCollectionRepo{db: conn}
}

const collectionColumns = `id, session_id, market_id, owner_id, collection_date, amount_minor, note, created_at`

func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(aggregate.MoneyPlaces).IntPart()
}

func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -aggregate.MoneyPlaces)
}

func (r *SQLiteCollectionRepo) Append(ctx context.Context, c *domain.CollectionRecord) error {
	query := `INSERT INTO collection_records (` + collectionColumns + `)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE ` + openSessionGuard
	res, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.SessionID,
		c.MarketID,
		c.OwnerID,
		formatDate(c.CollectionDate),
		toMinor(c.Amount),
		c.Note,
		formatTime(c.CreatedAt),
		c.SessionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting collection %s: %w", c.ID, ErrConflict)
		}
		return fmt.Errorf("inserting collection: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("inserting collection for session %s", c.SessionID))
}

func (r *SQLiteCollectionRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.CollectionRecord, error) {
	query := `SELECT ` + collectionColumns + ` FROM collection_records WHERE session_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()
	return scanCollections(rows)
}

func (r *SQLiteCollectionRepo) ListForDate(ctx context.Context, date time.Time, marketIDs []string) ([]*domain.CollectionRecord, error) {
	query := `SELECT ` + collectionColumns + ` FROM collection_records WHERE collection_date = ?`
	args := []any{formatDate(date)}
	query, args = appendInFilter(query, args, "market_id", marketIDs)
	query += ` ORDER BY market_id, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing collections for date: %w", err)
	}
	defer rows.Close()
	return scanCollections(rows)
}

func scanCollections(rows *sql.Rows) ([]*domain.CollectionRecord, error) {
	var out []*domain.CollectionRecord
	for rows.Next() {
		var c domain.CollectionRecord
		var dateStr, createdAtStr string
		var minor int64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.MarketID, &c.OwnerID, &dateStr, &minor, &c.Note, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning collection row: %w", err)
		}
		var err error
		if c.CollectionDate, err = parseDate("collection_date", dateStr); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
			return nil, err
		}
		c.Amount = fromMinor(minor)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}
	return out, nil
}
