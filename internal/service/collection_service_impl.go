package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/marketshift/internal/app"
	"github.com/alexanderramin/marketshift/internal/domain"
	"github.com/alexanderramin/marketshift/internal/notify"
	"github.com/alexanderramin/marketshift/internal/repository"
	"github.com/alexanderramin/marketshift/internal/settings"
	"github.com/alexanderramin/marketshift/internal/validate"
	"github.com/google/uuid"
)

type collectionService struct {
	sessions    repository.SessionRepo
	collections repository.CollectionRepo
	settings    settings.Source
	pub         notify.Publisher
	clock       Clock
	observer    UseCaseObserver
}

func NewCollectionService(
	sessions repository.SessionRepo,
	collections repository.CollectionRepo,
	source settings.Source,
	pub notify.Publisher,
	clock Clock,
	observers ...UseCaseObserver,
) CollectionService {
	return &collectionService{
		sessions:    sessions,
		collections: collections,
		settings:    source,
		pub:         publisherOrNoop(pub),
		clock:       clock,
		observer:    useCaseObserverOrNoop(observers),
	}
}

func (c *collectionService) Record(ctx context.Context, req app.RecordCollectionRequest) (rec *domain.CollectionRecord, err error) {
	fields := map[string]any{"actor": req.Actor.ID, "session_id": req.SessionID}
	ctx, done := track(ctx, c.observer, "collection-record", fields)
	defer done(&err)

	if err = checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	amount, err := validate.ParseMoney(req.Amount)
	if err != nil {
		return nil, err
	}
	sess, err := writableSession(ctx, c.sessions, req.Actor, req.SessionID)
	if err != nil {
		return nil, err
	}

	now := c.clock.now()
	rec = &domain.CollectionRecord{
		ID:             uuid.New().String(),
		SessionID:      sess.ID,
		MarketID:       sess.MarketID,
		OwnerID:        sess.OwnerID,
		CollectionDate: sess.SessionDate,
		Amount:         amount,
		Note:           req.Note,
		CreatedAt:      now,
	}
	if err = c.collections.Append(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrPrecondition) {
			return nil, classifyRejectedWrite(ctx, c.sessions, sess.ID, domain.Storage("recording collection", err))
		}
		return nil, storageErr("recording collection", err)
	}
	fields["market_id"] = rec.MarketID
	fields["amount"] = rec.Amount.StringFixed(2)

	err = publish(ctx, c.pub, notify.ChangeEvent{
		Table:       notify.TableCollectionRecords,
		Op:          notify.OpInsert,
		RecordID:    rec.ID,
		SessionID:   sess.ID,
		MarketID:    sess.MarketID,
		SessionDate: sess.SessionDate,
		OccurredAt:  now,
	})
	return rec, err
}

func (c *collectionService) List(ctx context.Context, req app.ListCollectionsRequest) ([]*domain.CollectionRecord, error) {
	if err := checkRequest(req.Actor, req); err != nil {
		return nil, err
	}
	if req.SessionID != "" {
		if _, err := readableSession(ctx, c.sessions, req.Actor, req.SessionID); err != nil {
			return nil, err
		}
		list, err := c.collections.ListBySession(ctx, req.SessionID)
		if err != nil {
			return nil, storageErr("listing collections", err)
		}
		return list, nil
	}

	if err := requireRollupViewer(req.Actor); err != nil {
		return nil, err
	}
	cfg, err := loadSettings(ctx, c.settings)
	if err != nil {
		return nil, err
	}
	date, err := resolveDate(req.Date, cfg, c.clock.now())
	if err != nil {
		return nil, err
	}
	list, err := c.collections.ListForDate(ctx, date, req.MarketIDs)
	if err != nil {
		return nil, storageErr("listing collections", err)
	}
	return list, nil
}
