// Package notify carries change events from committed mutations to anything
// that needs to re-fetch derived state, such as live dashboards.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type Table string

const (
	TableSessions          Table = "sessions"
	TableTaskRecords       Table = "task_records"
	TableCollectionRecords Table = "collection_records"
)

// Tables lists every table that emits change events.
var Tables = []Table{TableSessions, TableTaskRecords, TableCollectionRecords}

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ChangeEvent says that a row in Table changed. Subscribers are expected to
// re-request whatever they derive from that table.
type ChangeEvent struct {
	Table       Table
	Op          Op
	RecordID    string
	SessionID   string
	MarketID    string
	SessionDate time.Time
	OccurredAt  time.Time
}

// Publisher is the side of the notifier the workflow services depend on.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// ErrClosed is returned when publishing to a closed bus.
var ErrClosed = errors.New("notify: bus closed")

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// Bus is an in-process publish/subscribe notifier keyed by table name.
// Publish never blocks on a slow subscriber: when a subscription's buffer is
// full the event is dropped for that subscriber, since an undelivered event
// already guarantees a re-fetch.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

// NewBus returns a bus whose subscriptions buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{subs: make(map[uint64]*Subscription), buffer: buffer}
}

// Subscribe registers interest in the given tables, or every table when none
// are named.
func (b *Bus) Subscribe(tables ...Table) *Subscription {
	if len(tables) == 0 {
		tables = Tables
	}
	set := make(map[Table]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		bus:    b,
		tables: set,
		ch:     make(chan ChangeEvent, b.buffer),
	}
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish fans ev out to every subscription watching ev.Table.
func (b *Bus) Publish(ctx context.Context, ev ChangeEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Table, err)
	}
	if !knownTable(ev.Table) {
		return fmt.Errorf("publish: unknown table %q", ev.Table)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subs {
		if !sub.tables[ev.Table] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
	return nil
}

// Close ends every subscription. Further publishes return ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.closed = true
		close(sub.ch)
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub.id)
	close(sub.ch)
}

func knownTable(t Table) bool {
	for _, known := range Tables {
		if t == known {
			return true
		}
	}
	return false
}

// Subscription receives events for the tables it was created with.
type Subscription struct {
	id      uint64
	bus     *Bus
	tables  map[Table]bool
	ch      chan ChangeEvent
	closed  bool // guarded by bus.mu
	dropped atomic.Int64
}

// Events is closed when the subscription or the bus is closed.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}
