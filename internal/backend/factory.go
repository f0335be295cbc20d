package backend

import (
	"context"
	"fmt"

	"ledger/internal/log"
	"ledger/internal/storage/memory"
	"ledger/internal/storage/postgres"
	"ledger/internal/storage/redis"
	"ledger/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	slot, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite slot store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Slot:    slot,
		Ready:   slot.Ping,
		Cleanup: slot.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	slot := memory.New(config.MemoryQuotaBytes)

	f.logger.InfoContext(ctx, "Initialized memory backend", "quota_bytes", config.MemoryQuotaBytes)

	return &BackendResult{
		Slot:    slot,
		Ready:   func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cfg := redis.DefaultConfig()
	cfg.Addr = config.RedisAddr
	cfg.Username = config.RedisUsername
	cfg.Password = config.RedisPassword
	cfg.DB = config.RedisDB
	if config.RedisKeyPrefix != "" {
		cfg.KeyPrefix = config.RedisKeyPrefix
	}

	slot, err := redis.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis slot store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Redis backend", "addr", cfg.Addr, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return &BackendResult{
		Slot:    slot,
		Ready:   slot.Ping,
		Cleanup: slot.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	slot, err := postgres.Open(config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL slot store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized PostgreSQL backend")

	return &BackendResult{
		Slot:    slot,
		Ready:   slot.Ping,
		Cleanup: slot.Close,
	}, nil
}
