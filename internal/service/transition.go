package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/window"
	"github.com/google/uuid"
)

// maxTransitionAttempts bounds how often a transition re-reads the session
// after losing a compare-and-swap race.
const maxTransitionAttempts = 3

// afterSwap runs inside the transition's transaction once the session row
// has been updated.
type afterSwap func(ctx context.Context, tx db.DBTX, s *domain.Session) error

// transition loads the session inside a transaction, checks the actor owns
// it, applies the domain change and writes it back with compare-and-swap.
// Losing the race to a concurrent writer restarts from a fresh read, so the
// domain rules classify the outcome against the winner's state. When changed
// is non-nil and reports false after apply, nothing is written.
func transition(ctx context.Context, uow db.UnitOfWork, req app.SessionRequest, apply func(*domain.Session) error, after afterSwap, changed *bool) (*domain.Session, error) {
	var result *domain.Session
	var err error
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		err = uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			repo := repository.NewSQLiteSessionRepo(tx)
			s, err := repo.GetByID(ctx, req.SessionID)
			if err != nil {
				return notFoundOr("reading session", "session", req.SessionID, err)
			}
			if err := requireWriter(req.Actor, s); err != nil {
				return err
			}
			if err := apply(s); err != nil {
				return err
			}
			result = s
			if changed != nil && !*changed {
				return nil
			}
			if err := repo.CompareAndSwap(ctx, s); err != nil {
				return err
			}
			if after != nil {
				return after(ctx, tx, s)
			}
			return nil
		})
		if !errors.Is(err, repository.ErrStale) {
			break
		}
	}
	if err != nil {
		return nil, storageErr("updating session", err)
	}
	return result, nil
}

// newPunchMarker builds the ledger record for a punch. An empty payload is
// replaced by the punch timestamp.
func newPunchMarker(taskType domain.TaskType, payload json.RawMessage, now time.Time) (*domain.TaskRecord, error) {
	if len(payload) == 0 || string(payload) == "{}" {
		var err error
		payload, err = json.Marshal(map[string]string{"at": now.Format(time.RFC3339)})
		if err != nil {
			return nil, fmt.Errorf("encoding %s marker: %w", taskType, err)
		}
	}
	return &domain.TaskRecord{
		ID:        uuid.New().String(),
		TaskType:  taskType,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// punch sets the session's punch-in or punch-out timestamp and appends
// marker in the same transaction, then announces both. Session state is
// checked before the punch-in window, so a repeated punch reports the
// conflict even once the window has closed. A publish failure is returned
// with the committed session.
func punch(ctx context.Context, uow db.UnitOfWork, pub notify.Publisher, cfg *domain.Settings, req app.SessionRequest, marker *domain.TaskRecord, now time.Time) (*domain.Session, *domain.TaskRecord, error) {
	apply := func(s *domain.Session) error {
		if marker.TaskType == domain.TaskPunchOut {
			return s.PunchOut(now)
		}
		if err := s.CanPunchIn(); err != nil {
			return err
		}
		if name, ok := cfg.WindowForAction(domain.ActionPunchIn); ok {
			if err := window.Evaluate(cfg.Windows, name, now).Err(domain.KindWindowClosed); err != nil {
				return err
			}
		}
		return s.PunchIn(now)
	}

	sess, err := transition(ctx, uow, req, apply, writeMarker(marker), nil)
	if err != nil {
		return nil, nil, err
	}
	if err := publish(ctx, pub, sessionEvent(notify.OpUpdate, sess, now)); err != nil {
		return sess, marker, err
	}
	return sess, marker, publish(ctx, pub, taskEvent(notify.OpInsert, marker, sess, now))
}

// writeMarker appends the singleton ledger record for a punch. A conflict
// means the session already carries that marker, which rolls the punch back.
func writeMarker(marker *domain.TaskRecord) afterSwap {
	return func(ctx context.Context, tx db.DBTX, s *domain.Session) error {
		marker.SessionID = s.ID
		err := repository.NewSQLiteTaskRecordRepo(tx).Append(ctx, marker)
		if errors.Is(err, repository.ErrConflict) {
			return domain.NewError(domain.KindDuplicateTask, "session %s already has a %s record", s.ID, marker.TaskType)
		}
		return err
	}
}
