package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/testutil"
	"github.com/stretchr/testify/require"
)

var (
	employee  = app.Actor{ID: "emp-1", Role: domain.RoleEmployee}
	employee2 = app.Actor{ID: "emp-2", Role: domain.RoleEmployee}
	manager   = app.Actor{ID: "mgr-1", Role: domain.RoleManager}
	admin     = app.Actor{ID: "adm-1", Role: domain.RoleAdmin}
)

type harness struct {
	db          *sql.DB
	clock       *testutil.FixedClock
	bus         *notify.Bus
	sessionRepo *repository.SQLiteSessionRepo
	taskRepo    *repository.SQLiteTaskRecordRepo
	sessions    SessionManager
	ledger      TaskLedger
	collections CollectionService
	engine      AggregationEngine
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	database *sql.DB
	uow      db.UnitOfWork
	pub      notify.Publisher
	settings *domain.Settings
	fastPath bool
}

func withDB(database *sql.DB) harnessOption {
	return func(c *harnessConfig) { c.database = database }
}

func withUoW(uow db.UnitOfWork) harnessOption {
	return func(c *harnessConfig) { c.uow = uow }
}

func withPublisher(p notify.Publisher) harnessOption {
	return func(c *harnessConfig) { c.pub = p }
}

func withSettings(s *domain.Settings) harnessOption {
	return func(c *harnessConfig) { c.settings = s }
}

func withoutFastPath() harnessOption {
	return func(c *harnessConfig) { c.fastPath = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{fastPath: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.database == nil {
		cfg.database = testutil.NewTestDB(t)
	}
	if cfg.uow == nil {
		cfg.uow = testutil.NewTestUoW(cfg.database)
	}
	if cfg.settings == nil {
		cfg.settings = testutil.NewTestSettings()
	}

	h := &harness{
		db:          cfg.database,
		clock:       testutil.NewFixedClock(testutil.TestNow),
		bus:         notify.NewBus(notify.DefaultBuffer),
		sessionRepo: repository.NewSQLiteSessionRepo(cfg.database),
		taskRepo:    repository.NewSQLiteTaskRecordRepo(cfg.database),
	}
	t.Cleanup(h.bus.Close)
	pub := cfg.pub
	if pub == nil {
		pub = h.bus
	}
	src := settings.Static{Settings: cfg.settings}
	collRepo := repository.NewSQLiteCollectionRepo(cfg.database)

	h.sessions = NewSessionManager(h.sessionRepo, cfg.uow, src, pub, h.clock.Now)
	h.ledger = NewTaskLedger(h.sessionRepo, h.taskRepo, cfg.uow, src, pub, h.clock.Now)
	h.collections = NewCollectionService(h.sessionRepo, collRepo, src, pub, h.clock.Now)
	h.engine = NewAggregationEngine(AggregationSources{
		View:        repository.NewSQLiteRollupView(cfg.database),
		Sessions:    h.sessionRepo,
		Tasks:       h.taskRepo,
		Collections: collRepo,
	}, cfg.fastPath, src, h.clock.Now, nil)
	return h
}

// activeSession creates and activates a session for actor at market.
func (h *harness) activeSession(t *testing.T, actor app.Actor, market string) *domain.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := h.sessions.Create(ctx, app.CreateSessionRequest{Actor: actor, MarketID: market})
	require.NoError(t, err)
	sess, err = h.sessions.Activate(ctx, app.SessionRequest{Actor: actor, SessionID: sess.ID})
	require.NoError(t, err)
	return sess
}

func (h *harness) stored(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := h.sessionRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

// at moves the clock to a UTC wall time on TestDate plus days.
func (h *harness) at(days int, clock string) {
	tod := domain.MustTimeOfDay(clock)
	h.clock.Set(testutil.TestDate.AddDate(0, 0, days).Add(tod.Offset()))
}

// drain returns every event currently buffered on sub.
func drain(sub *notify.Subscription) []notify.ChangeEvent {
	var out []notify.ChangeEvent
	for {
		select {
		case ev := <-sub.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, notify.ChangeEvent) error {
	return errors.New("transport down")
}

func errKind(err error) domain.ErrorKind {
	return domain.KindOf(err)
}
