// Package ledger owns the in-memory ledger state. Every mutation is validated
// in full before anything changes, persisted through the repository and then
// announced to the configured publisher.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"paydo/internal/budget"
	"paydo/internal/cache"
	"paydo/internal/core"
	"paydo/internal/storage"
)

// Publisher receives committed ledger events.
type Publisher interface {
	PublishEvent(ctx context.Context, ev core.LedgerEvent) error
}

type Ledger struct {
	mu       sync.RWMutex
	repo     *storage.Repository
	state    core.State
	revision uint64
	lastID   int64

	now       func() time.Time
	loc       *time.Location
	policy    budget.Policy
	publisher Publisher
	reports   cache.Cache[budget.Report]

	// pubSeq is guarded by mu; pubDone by pubMu.
	pubSeq  uint64
	pubMu   sync.Mutex
	pubCond *sync.Cond
	pubDone uint64
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone used to date new transactions.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithTagPolicy(p budget.Policy) Option {
	return func(l *Ledger) {
		if p.IsValid() {
			l.policy = p
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithReportCache(c cache.Cache[budget.Report]) Option {
	return func(l *Ledger) { l.reports = c }
}

func New(repo *storage.Repository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		state:  core.DefaultState(),
		now:    time.Now,
		loc:    time.Local,
		policy: budget.AllTags,
	}
	l.pubCond = sync.NewCond(&l.pubMu)
	for _, opt := range opts {
		opt(l)
	}
	if l.reports == nil {
		l.reports = cache.NewLRUCache[budget.Report](32, 0)
	}
	return l
}

// LoadNotice tells the user something unusual happened while loading.
type LoadNotice struct {
	Corrupt   bool
	LegacyKey string
	Err       error
}

func (n *LoadNotice) Message() string {
	if n.Corrupt {
		return "خطا در بارگذاری اطلاعات، داده‌ها بازنشانی شد"
	}
	return "اطلاعات از نسخه قبلی بازیابی شد"
}

// Load reads the persisted state. A corrupt document leaves the default state
// in place and is reported through the notice, not the error.
func (l *Ledger) Load(ctx context.Context) (*LoadNotice, error) {
	res, err := l.repo.Load(ctx)
	var notice *LoadNotice
	switch {
	case errors.Is(err, storage.ErrCorruptDocument):
		slog.WarnContext(ctx, "Ledger document is corrupt, starting from defaults", "key", res.Key, "error", err)
		notice = &LoadNotice{Corrupt: true, Err: err}
	case err != nil:
		return nil, fmt.Errorf("load ledger: %w", err)
	case res.Legacy:
		notice = &LoadNotice{LegacyKey: res.Key}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.commit(res.State)
	l.lastID = 0
	for _, a := range l.state.Accounts {
		l.lastID = max(l.lastID, a.ID)
	}
	for _, t := range l.state.Transactions {
		l.lastID = max(l.lastID, t.ID)
	}
	slog.InfoContext(ctx, "Ledger loaded",
		"accounts", len(l.state.Accounts),
		"transactions", len(l.state.Transactions))
	return notice, nil
}

// commit installs st as the current state. Callers hold mu.
func (l *Ledger) commit(st core.State) {
	l.state = st
	l.revision++
}

// persist saves next and commits it only when the save succeeded. Callers
// hold mu.
func (l *Ledger) persist(ctx context.Context, next core.State) error {
	if err := l.repo.Save(ctx, next); err != nil {
		return err
	}
	l.commit(next)
	return nil
}

// nextID hands out millisecond timestamps, bumped when two calls land in the
// same millisecond. Callers hold mu.
func (l *Ledger) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

// pending is an event stamped under mu and published once mu is released.
type pending struct {
	seq uint64
	ev  core.LedgerEvent
}

// announce stamps ev and reserves its place in the publish order. Callers
// hold mu. It returns nil when no publisher is configured.
func (l *Ledger) announce(ev core.LedgerEvent) *pending {
	if l.publisher == nil {
		return nil
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = l.now().UTC()
	l.pubSeq++
	return &pending{seq: l.pubSeq, ev: ev}
}

// publish sends p after every earlier event has been sent. Callers must not
// hold mu, so a slow broker never stalls readers.
func (l *Ledger) publish(ctx context.Context, p *pending) {
	if p == nil {
		return
	}
	l.pubMu.Lock()
	for l.pubDone+1 != p.seq {
		l.pubCond.Wait()
	}
	l.pubMu.Unlock()

	if err := l.publisher.PublishEvent(ctx, p.ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "kind", p.ev.Kind, "event_id", p.ev.ID, "error", err)
	}

	l.pubMu.Lock()
	l.pubDone = p.seq
	l.pubCond.Broadcast()
	l.pubMu.Unlock()
}
