package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

// runtimeDependencies собирает хранилища, с которыми работает checkout proxy.
type runtimeDependencies struct {
	outboxRepo     domain.OutboxRepository
	pgStore        *postgres.Store
	storageChecker health.Checker
	closeFn        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Info("using in-memory outbox")
		return runtimeDependencies{
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: health.NewCheckFunc("storage", func(context.Context) error { return nil }),
			closeFn:        func() error { return nil },
		}, nil

	case StorageDriverPostgres:
		store, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return runtimeDependencies{}, err
		}
		return runtimeDependencies{
			outboxRepo:     postgres.NewOutboxRepository(store),
			pgStore:        store,
			storageChecker: health.NewCheckFunc("storage", store.Ping),
			closeFn:        store.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *log.Entry) (*postgres.Store, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.MigrateUp(ctx, 0); err != nil {
			return nil, errors.Join(fmt.Errorf("apply migrations: %w", err), store.Close())
		}
		logger.Info("postgres migrations applied")
	}
	return store, nil
}

// CartStorage связывает хранилище корзины с функцией освобождения ресурсов.
type CartStorage struct {
	domain.KeyValueStorage
	Close func() error
}

// OpenCartStorage открывает хранилище корзины CLI для профиля из конфигурации.
func OpenCartStorage(ctx context.Context, cfg Config) (CartStorage, error) {
	profile := cfg.Cart.Profile
	if profile == "" {
		profile = postgres.DefaultNamespace
	}

	switch cfg.Cart.StorageDriver {
	case StorageDriverMemory:
		return CartStorage{KeyValueStorage: memory.NewKeyValueStorage(), Close: func() error { return nil }}, nil

	case "", StorageDriverSQLite:
		kv, err := sqlite.Open(cfg.Cart.SQLitePath, profile)
		if err != nil {
			return CartStorage{}, err
		}
		return CartStorage{KeyValueStorage: kv, Close: kv.Close}, nil

	case StorageDriverPostgres:
		store, err := openPostgres(ctx, cfg, log.WithField("component", "cart-storage"))
		if err != nil {
			return CartStorage{}, err
		}
		return CartStorage{KeyValueStorage: postgres.NewKeyValueStorage(store, profile), Close: store.Close}, nil

	default:
		return CartStorage{}, fmt.Errorf("unsupported cart storage driver %q", cfg.Cart.StorageDriver)
	}
}
