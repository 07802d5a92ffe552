package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paydo/internal/amqp"
	"paydo/internal/budget"
	"paydo/internal/cache"
	"paydo/internal/ledger"
	"paydo/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store, connects the optional event
// publisher and loads the ledger.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{store.Close}

	opts := []ledger.Option{
		ledger.WithLocation(config.Location),
		ledger.WithTagPolicy(config.TagPolicy),
	}

	eventsEnabled := false
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, ledger.WithPublisher(client))
			cleanups = append(cleanups, client.Close)
			eventsEnabled = true
		}
	}

	reports := cache.NewLRUCache[budget.Report](config.ReportCacheSize, config.ReportCacheTTL)
	opts = append(opts, ledger.WithReportCache(reports))
	if config.ReportCacheTTL > 0 {
		manager := cache.NewManager()
		manager.Register(reports)
		manager.StartCleanup(config.ReportCacheTTL)
		cleanups = append(cleanups, func() error { manager.Stop(); return nil })
	}

	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	repo := storage.NewRepository(store, config.StorageKey, config.LegacyStorageKeys...)
	l := ledger.New(repo, opts...)
	notice, err := l.Load(ctx)
	if err != nil {
		cleanup()
		return nil, err
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"storage_key", config.StorageKey,
		"events_enabled", eventsEnabled)

	return &BackendResult{Ledger: l, Notice: notice, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case MemoryBackend:
		return storage.NewMemoryStore(), nil
	case FileBackend:
		store, err := storage.NewFileStore(config.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		return store, nil
	case SQLiteBackend:
		store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
