package backend

import (
	"fmt"

	"paydo/internal/budget"
	"paydo/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	loc, err := appConfig.Location()
	if err != nil {
		return Config{}, fmt.Errorf("load timezone: %w", err)
	}

	return Config{
		Type: backendType,

		DataDirectory:     appConfig.DataDir,
		SQLiteDBPath:      appConfig.SQLiteDBPath,
		StorageKey:        appConfig.StorageKey,
		LegacyStorageKeys: appConfig.LegacyStorageKeys,

		Location:        loc,
		TagPolicy:       budget.Policy(appConfig.TagPolicy),
		ReportCacheSize: appConfig.ReportCacheSize,
		ReportCacheTTL:  appConfig.ReportCacheTTL,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage key is required")
	}

	switch c.Type {
	case FileBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend}
}
