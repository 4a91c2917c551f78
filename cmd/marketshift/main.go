package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/cli"
	"github.com/alexanderramin/marketshift/internal/cli/formatter"
	"github.com/alexanderramin/marketshift/internal/config"
	"github.com/alexanderramin/marketshift/internal/db"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/service"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/telemetry"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, formatter.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: "marketshift",
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.TracingEnabled(),
	})
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flushing spans", "error", err)
		}
	}()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	src := settings.NewFileSource(cfg.SettingsPath, nil)

	// Wire repositories
	sessionRepo := repository.NewSQLiteSessionRepo(database)
	taskRepo := repository.NewSQLiteTaskRecordRepo(database)
	collectionRepo := repository.NewSQLiteCollectionRepo(database)

	uow := db.NewSQLiteUnitOfWork(database)
	bus := notify.NewBus(notify.DefaultBuffer)
	defer bus.Close()

	// Wire services
	obs := service.NewLogUseCaseObserver(logger)
	clock := service.Clock(time.Now)

	a := &cli.App{
		Sessions:    service.NewSessionManager(sessionRepo, uow, src, bus, clock, obs),
		Ledger:      service.NewTaskLedger(sessionRepo, taskRepo, uow, src, bus, clock, obs),
		Collections: service.NewCollectionService(sessionRepo, collectionRepo, src, bus, clock, obs),
		Aggregation: service.NewAggregationEngine(service.AggregationSources{
			View:        repository.NewSQLiteRollupView(database),
			Sessions:    sessionRepo,
			Tasks:       taskRepo,
			Collections: collectionRepo,
		}, cfg.AggregationFastPath, src, clock, logger, obs),
		Settings:         src,
		Changes:          bus,
		Actor:            app.Actor{ID: cfg.User, Role: domain.Role(cfg.Role)},
		DashboardRefresh: cfg.DashboardRefresh,
	}

	a.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	return cli.NewRootCmd(a).ExecuteContext(ctx)
}
