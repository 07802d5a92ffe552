package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"paydo/internal/cache"
	"paydo/internal/core"
)

// Delivered (event, sink) pairs are remembered this long so a redelivered
// event skips the sinks that already handled it.
const (
	deliveredSize = 4096
	deliveredTTL  = 24 * time.Hour
)

// Sink receives every ledger event consumed from the queue.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev core.LedgerEvent) error
}

// SyncWorker fans each event out to all sinks concurrently. The event fails,
// and is redelivered, when any sink fails; on redelivery only the sinks that
// have not succeeded yet run again.
type SyncWorker struct {
	sinks     []Sink
	timeout   time.Duration
	delivered cache.Cache[bool]
}

func NewSyncWorker(timeout time.Duration, sinks ...Sink) *SyncWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SyncWorker{
		sinks:     sinks,
		timeout:   timeout,
		delivered: cache.NewLRUCache[bool](deliveredSize, deliveredTTL),
	}
}

// Sinks lists the configured sink names.
func (w *SyncWorker) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// HandleEvent matches amqp.Handler.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"event_kind", ev.Kind,
		"transactions", len(ev.Transactions))

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range w.sinks {
		sink := sink
		key := ev.ID + "|" + sink.Name()
		if _, done := w.delivered.Get(key); done && ev.ID != "" {
			slog.InfoContext(ctx, "Skipping sink that already handled event", "sink", sink.Name(), "event_id", ev.ID)
			continue
		}
		g.Go(func() error {
			start := time.Now()
			if err := sink.Handle(gctx, ev); err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			if ev.ID != "" {
				w.delivered.Set(key, true)
			}
			slog.DebugContext(gctx, "Sink handled event",
				"sink", sink.Name(),
				"event_id", ev.ID,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("sync event %s: %w", ev.ID, err)
	}
	return nil
}
