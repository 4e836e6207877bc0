package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/config"
	"github.com/osse101/MinerSync_Go/internal/database"
	"github.com/osse101/MinerSync_Go/internal/database/postgres"
	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/handler"
	"github.com/osse101/MinerSync_Go/internal/repository"
	"github.com/osse101/MinerSync_Go/internal/repository/memstore"
)

// Remote is the remote account store selected by REMOTE_BACKEND.
type Remote struct {
	Store  repository.RemoteStore
	Pinger handler.Pinger
	close  func()
}

// Close releases the backend's resources.
func (r *Remote) Close() {
	if r.close != nil {
		r.close()
	}
}

// PoolConfig derives the database pool settings from cfg.
func PoolConfig(cfg *config.Config) database.PoolConfig {
	return database.PoolConfig{
		ConnString:      cfg.GetDBConnString(),
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		ApplicationName: ServiceName + "/" + cfg.AccountID,
		ConnectRetries:  DBConnectRetries,
	}
}

// InitializeRemote opens the configured remote store. The PostgreSQL backend is
// migrated to the latest schema; the in-memory backend is seeded with the configured
// account so the daemon can run without a database.
func InitializeRemote(ctx context.Context, cfg *config.Config, clock domain.Clock) (*Remote, error) {
	switch cfg.RemoteBackend {
	case config.RemoteBackendPostgres:
		pool, err := database.NewPool(ctx, PoolConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedConnectDB, err)
		}
		if err := database.Migrate(ctx, pool, database.MigrateUp); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		slog.Info(LogMsgRemoteBackend, "backend", cfg.RemoteBackend, "db_host", cfg.DBHost, "db_name", cfg.DBName)
		return &Remote{
			Store:  postgres.NewStore(pool, clock),
			Pinger: pool,
			close:  pool.Close,
		}, nil

	case config.RemoteBackendMemory:
		store := memstore.New(clock)
		store.CreateAccount(cfg.AccountID, decimal.Zero)
		slog.Info(LogMsgRemoteBackend, "backend", cfg.RemoteBackend)
		slog.Info(LogMsgMemoryAccountSeeded, "account_id", cfg.AccountID)
		return &Remote{
			Store:  store,
			Pinger: handler.PingFunc(func(context.Context) error { return nil }),
		}, nil
	}

	return nil, fmt.Errorf("%s: %q", ErrMsgUnknownBackend, cfg.RemoteBackend)
}

// EnsureAccount creates the configured account in PostgreSQL if it does not exist yet.
func EnsureAccount(ctx context.Context, cfg *config.Config, clock domain.Clock) error {
	pool, err := database.NewPool(ctx, PoolConfig(cfg))
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedConnectDB, err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, database.MigrateUp); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
	}
	if err := postgres.NewStore(pool, clock).CreateAccount(ctx, cfg.AccountID); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedSeedAccount, err)
	}
	return nil
}
