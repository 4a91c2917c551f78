package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/validate"
)

// Clock supplies the server time for timestamps and window checks.
type Clock func() time.Time

// now returns the clock reading in UTC at second precision, matching what
// storage keeps.
func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Second)
	}
	return c().UTC().Truncate(time.Second)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, notify.ChangeEvent) error { return nil }

func publisherOrNoop(p notify.Publisher) notify.Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// checkRequest validates the actor and the request's tagged fields.
func checkRequest(actor app.Actor, req any) error {
	if actor.ID == "" {
		return domain.Validation("actor", "actor id is required")
	}
	if _, err := domain.ParseRole(string(actor.Role)); err != nil {
		return err
	}
	return validate.Struct(req)
}

func requireWriter(actor app.Actor, s *domain.Session) error {
	if !actor.CanOwnSessions() {
		return domain.NewError(domain.KindForbidden, "role %s may not write sessions", actor.Role)
	}
	if s != nil && s.OwnerID != actor.ID {
		return domain.NewError(domain.KindForbidden, "session %s belongs to another owner", s.ID)
	}
	return nil
}

func requireReader(actor app.Actor, s *domain.Session) error {
	if !actor.CanRead(s) {
		return domain.NewError(domain.KindForbidden, "session %s is not visible to %s", s.ID, actor.ID)
	}
	return nil
}

func requireRollupViewer(actor app.Actor) error {
	if !actor.CanViewRollups() {
		return domain.NewError(domain.KindForbidden, "role %s may not view market rollups", actor.Role)
	}
	return nil
}

// storageErr passes workflow errors through and wraps anything else from a
// collaborator as a StorageError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.Storage(op, err)
}

// notFoundOr maps repository.ErrNotFound to a NotFoundError for entity.
func notFoundOr(op, entity, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(entity, id)
	}
	return storageErr(op, err)
}

func loadSettings(ctx context.Context, src settings.Source) (*domain.Settings, error) {
	if src == nil {
		return domain.DefaultSettings(), nil
	}
	cfg, err := src.Snapshot(ctx)
	if err != nil {
		return nil, storageErr("loading settings", err)
	}
	return cfg, nil
}

// resolveDate parses raw, defaulting to today in the organization timezone.
func resolveDate(raw string, cfg *domain.Settings, now time.Time) (time.Time, error) {
	if raw == "" {
		return domain.LocalDate(now, cfg.Windows.Loc()), nil
	}
	return domain.ParseDate(raw)
}

// normalizePayload returns "{}" for an empty payload and rejects invalid JSON.
func normalizePayload(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(trimmed) {
		return nil, domain.Validation("payload", "payload must be valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

// publish sends ev after a committed mutation. A failure does not undo the
// mutation; it is reported as a NotificationError.
func publish(ctx context.Context, pub notify.Publisher, ev notify.ChangeEvent) error {
	if err := pub.Publish(ctx, ev); err != nil {
		return domain.Notification(fmt.Sprintf("publishing %s %s", ev.Table, ev.Op), err)
	}
	return nil
}

func sessionEvent(op notify.Op, s *domain.Session, at time.Time) notify.ChangeEvent {
	return notify.ChangeEvent{
		Table:       notify.TableSessions,
		Op:          op,
		RecordID:    s.ID,
		SessionID:   s.ID,
		MarketID:    s.MarketID,
		SessionDate: s.SessionDate,
		OccurredAt:  at,
	}
}

func taskEvent(op notify.Op, r *domain.TaskRecord, s *domain.Session, at time.Time) notify.ChangeEvent {
	return notify.ChangeEvent{
		Table:       notify.TableTaskRecords,
		Op:          op,
		RecordID:    r.ID,
		SessionID:   s.ID,
		MarketID:    s.MarketID,
		SessionDate: s.SessionDate,
		OccurredAt:  at,
	}
}

// classifyRejectedWrite re-reads the session after a guarded write matched no
// row and reports SessionLocked when it has been finalized meanwhile.
func classifyRejectedWrite(ctx context.Context, sessions repository.SessionRepo, sessionID string, fallback error) error {
	sess, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return notFoundOr("reading session", "session", sessionID, err)
	}
	if err := sess.AcceptsWrites(); err != nil {
		return err
	}
	return fallback
}

// writableSession loads a session the actor owns and may still write to.
func writableSession(ctx context.Context, sessions repository.SessionRepo, actor app.Actor, sessionID string) (*domain.Session, error) {
	sess, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr("reading session", "session", sessionID, err)
	}
	if err := requireWriter(actor, sess); err != nil {
		return nil, err
	}
	if err := sess.AcceptsWrites(); err != nil {
		return nil, err
	}
	return sess, nil
}

func readableSession(ctx context.Context, sessions repository.SessionRepo, actor app.Actor, sessionID string) (*domain.Session, error) {
	sess, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr("reading session", "session", sessionID, err)
	}
	if err := requireReader(actor, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
