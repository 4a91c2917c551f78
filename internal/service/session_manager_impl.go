package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/window"
	"github.com/google/uuid"
)

type sessionManager struct {
	sessions repository.SessionRepo
	uow      db.UnitOfWork
	settings settings.Source
	pub      notify.Publisher
	clock    Clock
	observer UseCaseObserver
}

func NewSessionManager(
	sessions repository.SessionRepo,
	uow db.UnitOfWork,
	source settings.Source,
	pub notify.Publisher,
	clock Clock,
	observers ...UseCaseObserver,
) SessionManager {
	return &sessionManager{
		sessions: sessions,
		uow:      uow,
		settings: source,
		pub:      publisherOrNoop(pub),
		clock:    clock,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (m *sessionManager) Create(ctx context.Context, req app.CreateSessionRequest) (sess *domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "market_id": req.MarketID}
	ctx, done := track(ctx, m.observer, "session-create", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if err = requireWriter(req.Actor, nil); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, m.settings)
	if err != nil {
		return nil, err
	}
	now := m.clock.now()
	date, err := resolveDate(req.Date, cfg, now)
	if err != nil {
		return nil, err
	}

	sess = domain.NewSession(uuid.New().String(), req.Actor.ID, req.MarketID, date, now)
	fields["session_id"] = sess.ID
	fields["date"] = sess.DateString()
	if err = m.sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, domain.NewError(domain.KindDuplicateSession,
				"%s already has an open session on %s", req.Actor.ID, sess.DateString())
		}
		return nil, storageErr("creating session", err)
	}

	err = publish(ctx, m.pub, sessionEvent(notify.OpInsert, sess, now))
	return sess, err
}

func (m *sessionManager) Activate(ctx context.Context, req app.SessionRequest) (sess *domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID}
	ctx, done := track(ctx, m.observer, "session-activate", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	now := m.clock.now()
	changed := false
	sess, err = transition(ctx, m.uow, req, func(s *domain.Session) error {
		changed = false
		if s.Status == domain.SessionActive {
			return nil
		}
		if err := s.Activate(now); err != nil {
			return err
		}
		changed = true
		return nil
	}, nil, &changed)
	if err != nil || !changed {
		return sess, err
	}
	err = publish(ctx, m.pub, sessionEvent(notify.OpUpdate, sess, now))
	return sess, err
}

func (m *sessionManager) PunchIn(ctx context.Context, req app.SessionRequest) (sess *domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID}
	ctx, done := track(ctx, m.observer, "session-punch-in", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	sess, _, err = m.punch(ctx, req, domain.TaskPunchIn)
	return sess, err
}

func (m *sessionManager) PunchOut(ctx context.Context, req app.SessionRequest) (sess *domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID}
	ctx, done := track(ctx, m.observer, "session-punch-out", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	sess, _, err = m.punch(ctx, req, domain.TaskPunchOut)
	return sess, err
}

func (m *sessionManager) punch(ctx context.Context, req app.SessionRequest, taskType domain.TaskType) (*domain.Session, *domain.TaskRecord, error) {
	cfg, err := loadSettings(ctx, m.settings)
	if err != nil {
		return nil, nil, err
	}
	now := m.clock.now()
	marker, err := newPunchMarker(taskType, nil, now)
	if err != nil {
		return nil, nil, err
	}
	return punch(ctx, m.uow, m.pub, cfg, req, marker, now)
}

func (m *sessionManager) Finalize(ctx context.Context, req app.SessionRequest) (sess *domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID}
	ctx, done := track(ctx, m.observer, "session-finalize", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, m.settings)
	if err != nil {
		return nil, err
	}
	now := m.clock.now()

	sess, err = transition(ctx, m.uow, req, func(s *domain.Session) error {
		if err := s.CanFinalize(); err != nil {
			return err
		}
		if name, ok := cfg.WindowForAction(domain.ActionFinalize); ok {
			d := window.EvaluateDeadline(cfg.Windows, name, s.SessionDate, now)
			kind := domain.KindFinalizationExpired
			if d.Reason == window.ReasonNotConfigured {
				kind = domain.KindWindowClosed
			}
			if err := d.Err(kind); err != nil {
				return err
			}
		}
		return s.Finalize(now)
	}, nil, nil)
	if err != nil {
		return nil, err
	}
	err = publish(ctx, m.pub, sessionEvent(notify.OpUpdate, sess, now))
	return sess, err
}

func (m *sessionManager) Get(ctx context.Context, req app.SessionRequest) (sess *domain.Session, err error) {
	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	sess, err = m.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, notFoundOr("reading session", "session", req.SessionID, err)
	}
	if err = requireReader(req.Actor, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *sessionManager) List(ctx context.Context, req app.ListSessionsRequest) (list []*domain.Session, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "date": req.Date}
	ctx, done := track(ctx, m.observer, "session-list", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	filter := repository.SessionFilter{
		MarketIDs: req.MarketIDs,
		OwnerID:   req.OwnerID,
		Statuses:  req.Statuses,
	}
	if !req.Actor.CanViewRollups() {
		if req.OwnerID != "" && req.OwnerID != req.Actor.ID {
			return nil, domain.NewError(domain.KindForbidden, "role %s may only list own sessions", req.Actor.Role)
		}
		filter.OwnerID = req.Actor.ID
	}
	if req.Date != "" {
		date, err := domain.ParseDate(req.Date)
		if err != nil {
			return nil, err
		}
		filter.Date = &date
	}

	list, err = m.sessions.List(ctx, filter)
	if err != nil {
		return nil, storageErr("listing sessions", err)
	}
	fields["count"] = len(list)
	return list, nil
}

func (m *sessionManager) OpenFor(ctx context.Context, req app.OpenSessionRequest) (*domain.Session, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	owner := req.OwnerID
	if owner == "" {
		owner = req.Actor.ID
	}
	if owner != req.Actor.ID && !req.Actor.CanViewRollups() {
		return nil, domain.NewError(domain.KindForbidden, "role %s may only read own sessions", req.Actor.Role)
	}
	cfg, err := loadSettings(ctx, m.settings)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(req.Date, cfg, m.clock.now())
	if err != nil {
		return nil, err
	}
	sess, err := m.sessions.GetOpen(ctx, owner, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "%s has no open session on %s", owner, date.Format(domain.DateLayout))
		}
		return nil, storageErr("reading open session", err)
	}
	return sess, nil
}
