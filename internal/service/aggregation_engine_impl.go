package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/marketshift/internal/aggregate"
	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
)

// AggregationSources are the stores a summary reads. View may be nil, in
// which case every summary is computed from raw records.
type AggregationSources struct {
	View        repository.RollupView
	Sessions    repository.SessionRepo
	Tasks       repository.TaskRecordRepo
	Collections repository.CollectionRepo
}

type aggregationEngine struct {
	src      AggregationSources
	fastPath bool
	settings settings.Source
	clock    Clock
	logger   *slog.Logger
	observer UseCaseObserver
}

func NewAggregationEngine(
	src AggregationSources,
	fastPath bool,
	source settings.Source,
	clock Clock,
	logger *slog.Logger,
	observers ...UseCaseObserver,
) AggregationEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &aggregationEngine{
		src:      src,
		fastPath: fastPath && src.View != nil,
		settings: source,
		clock:    clock,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (e *aggregationEngine) Summarize(ctx context.Context, req app.SummaryRequest) (snaps []domain.AggregateSnapshot, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "markets": len(req.MarketIDs)}
	ctx, done := track(ctx, e.observer, "aggregate-summarize", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if err = requireRollupViewer(req.Actor); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, e.settings)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(req.Date, cfg, e.clock.now())
	if err != nil {
		return nil, err
	}
	fields["date"] = date.Format(domain.DateLayout)

	activity, source, err := e.activity(ctx, date, req.MarketIDs)
	if err != nil {
		return nil, err
	}
	fields["source"] = source

	snaps = aggregate.Assemble(date, req.MarketIDs, cfg.ActiveMarkets(date.Weekday()), activity)
	fields["count"] = len(snaps)
	return snaps, nil
}

func (e *aggregationEngine) LiveMarkets(ctx context.Context, req app.LiveMarketsRequest) ([]string, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if err := requireRollupViewer(req.Actor); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, e.settings)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(req.Date, cfg, e.clock.now())
	if err != nil {
		return nil, err
	}
	return cfg.ActiveMarkets(date.Weekday()), nil
}

// activity reads per-market activity from the rollup views, falling back to
// the raw records when the views cannot be queried.
func (e *aggregationEngine) activity(ctx context.Context, date time.Time, markets []string) (aggregate.Activity, string, error) {
	if e.fastPath {
		a, err := e.src.View.MarketActivity(ctx, date, markets)
		if err == nil {
			return a, "view", nil
		}
		if ctx.Err() != nil {
			return nil, "", storageErr("reading rollup views", err)
		}
		e.logger.WarnContext(ctx, "aggregation fast path unavailable, recomputing from records",
			"date", date.Format(domain.DateLayout), "error", err)
	}
	a, err := e.fromRecords(ctx, date, markets)
	if err != nil {
		return nil, "", err
	}
	return a, "records", nil
}

func (e *aggregationEngine) fromRecords(ctx context.Context, date time.Time, markets []string) (aggregate.Activity, error) {
	sessions, err := e.src.Sessions.List(ctx, repository.SessionFilter{Date: &date, MarketIDs: markets})
	if err != nil {
		return nil, storageErr("listing sessions for summary", err)
	}
	tasks, err := e.src.Tasks.ListForDate(ctx, date, markets)
	if err != nil {
		return nil, storageErr("listing task records for summary", err)
	}
	collections, err := e.src.Collections.ListForDate(ctx, date, markets)
	if err != nil {
		return nil, storageErr(fmt.Sprintf("listing collections for %s", date.Format(domain.DateLayout)), err)
	}
	return aggregate.FromRecords(sessions, tasks, collections), nil
}
