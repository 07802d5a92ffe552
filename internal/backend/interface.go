package backend

import (
	"context"
	"time"

	"paydo/internal/budget"
	"paydo/internal/ledger"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is a loaded ledger plus what is needed to shut it down.
type BackendResult struct {
	Ledger *ledger.Ledger
	// Notice is set when loading recovered from a corrupt or legacy document.
	Notice  *ledger.LoadNotice
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	DataDirectory     string
	SQLiteDBPath      string
	StorageKey        string
	LegacyStorageKeys []string

	Location        *time.Location
	TagPolicy       budget.Policy
	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// AMQP publishing is skipped when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
