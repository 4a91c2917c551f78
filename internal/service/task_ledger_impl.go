package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/window"
	"github.com/google/uuid"
)

type taskLedger struct {
	sessions repository.SessionRepo
	tasks    repository.TaskRecordRepo
	uow      db.UnitOfWork
	settings settings.Source
	pub      notify.Publisher
	clock    Clock
	observer UseCaseObserver
}

func NewTaskLedger(
	sessions repository.SessionRepo,
	tasks repository.TaskRecordRepo,
	uow db.UnitOfWork,
	source settings.Source,
	pub notify.Publisher,
	clock Clock,
	observers ...UseCaseObserver,
) TaskLedger {
	return &taskLedger{
		sessions: sessions,
		tasks:    tasks,
		uow:      uow,
		settings: source,
		pub:      publisherOrNoop(pub),
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (l *taskLedger) Record(ctx context.Context, req app.RecordTaskRequest) (rec *domain.TaskRecord, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID, "task_type": req.TaskType}
	ctx, done := track(ctx, l.observer, "task-record", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	taskType, err := domain.ParseTaskType(req.TaskType)
	if err != nil {
		return nil, err
	}
	payload, err := normalizePayload(req.Payload)
	if err != nil {
		return nil, err
	}
	if taskType.Singleton() {
		rec, err = l.recordPunch(ctx, req, taskType, payload)
		if rec != nil {
			fields["record_id"] = rec.ID
		}
		return rec, err
	}
	sess, err := writableSession(ctx, l.sessions, req.Actor, req.SessionID)
	if err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, l.settings)
	if err != nil {
		return nil, err
	}
	now := l.clock.now()
	if name, ok := cfg.WindowForTask(taskType); ok {
		if err = window.Evaluate(cfg.Windows, name, now).Err(domain.KindWindowClosed); err != nil {
			return nil, err
		}
	}

	rec = &domain.TaskRecord{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		TaskType:  taskType,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = l.tasks.Append(ctx, rec); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, domain.NewError(domain.KindDuplicateTask, "session %s already has a %s record", sess.ID, taskType)
		case errors.Is(err, repository.ErrPrecondition):
			return nil, l.classifyRejectedWrite(ctx, sess.ID, domain.Storage("recording task", err))
		}
		return nil, storageErr("recording task", err)
	}
	fields["record_id"] = rec.ID

	err = publish(ctx, l.pub, taskEvent(notify.OpInsert, rec, sess, now))
	return rec, err
}

func (l *taskLedger) Update(ctx context.Context, req app.UpdateTaskRequest) (rec *domain.TaskRecord, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "record_id": req.RecordID}
	ctx, done := track(ctx, l.observer, "task-update", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	payload, err := normalizePayload(req.Payload)
	if err != nil {
		return nil, err
	}
	rec, sess, err := l.mutableRecord(ctx, req.Actor, req.RecordID)
	if err != nil {
		return nil, err
	}

	now := l.clock.now()
	rec.Payload = payload
	rec.UpdatedAt = now
	if err = l.tasks.UpdatePayload(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return nil, l.classifyRejectedWrite(ctx, sess.ID, domain.NotFound("task record", rec.ID))
		}
		return nil, storageErr("updating task record", err)
	}

	err = publish(ctx, l.pub, taskEvent(notify.OpUpdate, rec, sess, now))
	return rec, err
}

func (l *taskLedger) Delete(ctx context.Context, req app.DeleteTaskRequest) (err error) {
	fields := map[string]any{"actor": req.Actor.ID, "record_id": req.RecordID}
	ctx, done := track(ctx, l.observer, "task-delete", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return err
	}
	rec, sess, err := l.mutableRecord(ctx, req.Actor, req.RecordID)
	if err != nil {
		return err
	}
	if err = l.tasks.Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return l.classifyRejectedWrite(ctx, sess.ID, domain.NotFound("task record", rec.ID))
		}
		return storageErr("deleting task record", err)
	}
	return publish(ctx, l.pub, taskEvent(notify.OpDelete, rec, sess, l.clock.now()))
}

func (l *taskLedger) Count(ctx context.Context, req app.CountTasksRequest) (int, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return 0, err
	}
	taskType, err := domain.ParseTaskType(req.TaskType)
	if err != nil {
		return 0, err
	}
	if _, err := readableSession(ctx, l.sessions, req.Actor, req.SessionID); err != nil {
		return 0, err
	}
	n, err := l.tasks.Count(ctx, req.SessionID, taskType)
	if err != nil {
		return 0, storageErr("counting task records", err)
	}
	return n, nil
}

func (l *taskLedger) CountDistinct(ctx context.Context, req app.SessionRequest) (int, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return 0, err
	}
	if _, err := readableSession(ctx, l.sessions, req.Actor, req.SessionID); err != nil {
		return 0, err
	}
	n, err := l.tasks.CountDistinctTypes(ctx, req.SessionID)
	if err != nil {
		return 0, storageErr("counting task types", err)
	}
	return n, nil
}

func (l *taskLedger) Progress(ctx context.Context, req app.SessionRequest) (*domain.SessionProgress, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if _, err := readableSession(ctx, l.sessions, req.Actor, req.SessionID); err != nil {
		return nil, err
	}
	counts, err := l.tasks.CountByType(ctx, req.SessionID)
	if err != nil {
		return nil, storageErr("counting task records", err)
	}
	distinct := 0
	for _, n := range counts {
		if n > 0 {
			distinct++
		}
	}
	return &domain.SessionProgress{
		SessionID:     req.SessionID,
		Counts:        counts,
		DistinctTypes: distinct,
		CompletionPct: float64(distinct) / float64(len(domain.AllTaskTypes)) * 100,
	}, nil
}

func (l *taskLedger) List(ctx context.Context, req app.SessionRequest) ([]*domain.TaskRecord, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if _, err := readableSession(ctx, l.sessions, req.Actor, req.SessionID); err != nil {
		return nil, err
	}
	list, err := l.tasks.ListBySession(ctx, req.SessionID)
	if err != nil {
		return nil, storageErr("listing task records", err)
	}
	return list, nil
}

// mutableRecord loads a record the actor may edit: its type must be mutable
// and its session owned by the actor and not finalized.
func (l *taskLedger) mutableRecord(ctx context.Context, actor app.Actor, recordID string) (*domain.TaskRecord, *domain.Session, error) {
	rec, err := l.tasks.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, notFoundOr("reading task record", "task record", recordID, err)
	}
	sess, err := l.sessions.GetByID(ctx, rec.SessionID)
	if err != nil {
		return nil, nil, notFoundOr("reading session", "session", rec.SessionID, err)
	}
	if err := requireWriter(actor, sess); err != nil {
		return nil, nil, err
	}
	if !rec.TaskType.Mutable() {
		return nil, nil, domain.NewError(domain.KindImmutableRecord, "%s records cannot be modified", rec.TaskType)
	}
	if err := sess.AcceptsWrites(); err != nil {
		return nil, nil, err
	}
	return rec, sess, nil
}

// classifyRejectedWrite explains why a guarded write matched nothing. The
// session was writable when checked, so the usual cause is a finalize that
// committed in between; otherwise fallback is returned.
func (l *taskLedger) classifyRejectedWrite(ctx context.Context, sessionID string, fallback error) error {
	return classifyRejectedWrite(ctx, l.sessions, sessionID, fallback)
}

// recordPunch records a punch marker through the session's punch
// transition, so the marker and the session timestamp are written together
// under the same state and window rules. Punching twice is a duplicate
// record.
func (l *taskLedger) recordPunch(ctx context.Context, req app.RecordTaskRequest, taskType domain.TaskType, payload json.RawMessage) (*domain.TaskRecord, error) {
	cfg, err := loadSettings(ctx, l.settings)
	if err != nil {
		return nil, err
	}
	now := l.clock.now()
	marker, err := newPunchMarker(taskType, payload, now)
	if err != nil {
		return nil, err
	}
	_, rec, err := punch(ctx, l.uow, l.pub, cfg, app.SessionRequest{Actor: req.Actor, SessionID: req.SessionID}, marker, now)
	if errors.Is(err, domain.ErrAlreadyPunchedIn) || errors.Is(err, domain.ErrAlreadyPunchedOut) {
		return nil, &domain.Error{
			Kind:    domain.KindDuplicateTask,
			Message: fmt.Sprintf("session %s already has a %s record", req.SessionID, taskType),
			Cause:   err,
		}
	}
	return rec, err
}
