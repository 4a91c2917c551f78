package service

import (
	"context"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
)

// Mutating operations that commit but then fail to publish their change event
// return the committed result together with a NotificationError.

type SessionManager interface {
	Create(ctx context.Context, req app.CreateSessionRequest) (*domain.Session, error)
	Activate(ctx context.Context, req app.SessionRequest) (*domain.Session, error)
	PunchIn(ctx context.Context, req app.SessionRequest) (*domain.Session, error)
	PunchOut(ctx context.Context, req app.SessionRequest) (*domain.Session, error)
	Finalize(ctx context.Context, req app.SessionRequest) (*domain.Session, error)
	Get(ctx context.Context, req app.SessionRequest) (*domain.Session, error)
	List(ctx context.Context, req app.ListSessionsRequest) ([]*domain.Session, error)
	// OpenFor returns the owner's single non-finalized session on a date.
	OpenFor(ctx context.Context, req app.OpenSessionRequest) (*domain.Session, error)
}

type TaskLedger interface {
	Record(ctx context.Context, req app.RecordTaskRequest) (*domain.TaskRecord, error)
	Update(ctx context.Context, req app.UpdateTaskRequest) (*domain.TaskRecord, error)
	Delete(ctx context.Context, req app.DeleteTaskRequest) error
	Count(ctx context.Context, req app.CountTasksRequest) (int, error)
	CountDistinct(ctx context.Context, req app.SessionRequest) (int, error)
	Progress(ctx context.Context, req app.SessionRequest) (*domain.SessionProgress, error)
	List(ctx context.Context, req app.SessionRequest) ([]*domain.TaskRecord, error)
}

type CollectionService interface {
	Record(ctx context.Context, req app.RecordCollectionRequest) (*domain.CollectionRecord, error)
	List(ctx context.Context, req app.ListCollectionsRequest) ([]*domain.CollectionRecord, error)
}

type AggregationEngine interface {
	Summarize(ctx context.Context, req app.SummaryRequest) ([]domain.AggregateSnapshot, error)
	// LiveMarkets lists the markets scheduled for the date's weekday.
	LiveMarkets(ctx context.Context, req app.LiveMarketsRequest) ([]string, error)
}
