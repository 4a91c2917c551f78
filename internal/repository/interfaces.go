package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/marketshift/internal/aggregate"
	"github.com/alexanderramin/marketshift/internal/domain"
)

// SessionFilter narrows a session listing. Zero values match everything.
type SessionFilter struct {
	Date      *time.Time
	MarketIDs []string
	OwnerID   string
	Statuses  []domain.SessionStatus
}

type SessionRepo interface {
	// Create fails with ErrConflict when the owner already has an open
	// session on the same date.
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetOpen(ctx context.Context, ownerID string, date time.Time) (*domain.Session, error)
	List(ctx context.Context, f SessionFilter) ([]*domain.Session, error)
	// CompareAndSwap persists s only if the stored version still equals
	// s.Version, then increments s.Version. Returns ErrStale otherwise.
	CompareAndSwap(ctx context.Context, s *domain.Session) error
}

type TaskRecordRepo interface {
	// Append inserts r only while its session exists and is not finalized
	// (ErrPrecondition otherwise). A second singleton record is ErrConflict.
	Append(ctx context.Context, r *domain.TaskRecord) error
	GetByID(ctx context.Context, id string) (*domain.TaskRecord, error)
	// UpdatePayload and Delete only touch mutable task types on open sessions.
	UpdatePayload(ctx context.Context, r *domain.TaskRecord) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, sessionID string, taskType domain.TaskType) (int, error)
	CountByType(ctx context.Context, sessionID string) (map[domain.TaskType]int, error)
	CountDistinctTypes(ctx context.Context, sessionID string) (int, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.TaskRecord, error)
	// ListForDate returns records of sessions on date, optionally limited to markets.
	ListForDate(ctx context.Context, date time.Time, marketIDs []string) ([]*domain.TaskRecord, error)
}

type CollectionRepo interface {
	// Append is guarded like TaskRecordRepo.Append.
	Append(ctx context.Context, c *domain.CollectionRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.CollectionRecord, error)
	ListForDate(ctx context.Context, date time.Time, marketIDs []string) ([]*domain.CollectionRecord, error)
}

// RollupView reads the precomputed per-market, per-date projections.
type RollupView interface {
	MarketActivity(ctx context.Context, date time.Time, marketIDs []string) (aggregate.Activity, error)
}
