// Package database opens the PostgreSQL pool backing the remote account store
// and applies its schema migrations.
package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/osse101/MinerSync_Go/internal/logger"
)

// PoolConfig sizes and labels the connection pool.
type PoolConfig struct {
	ConnString      string
	MaxConns        int
	MaxConnIdleTime time.Duration
	MaxConnLifetime time.Duration
	// ApplicationName shows up in pg_stat_activity so operators can tell
	// which daemon holds a connection.
	ApplicationName string
	// ConnectRetries is how many extra pings are attempted while the server
	// is still starting.
	ConnectRetries uint64
}

// NewPool creates a PostgreSQL connection pool and waits until it answers a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToParseConnString, err)
	}

	maxConns := min(cfg.MaxConns, math.MaxInt32)
	if maxConns > 0 {
		pc.MaxConns = int32(maxConns)
	}
	pc.MinConns = min(DefaultMinConnections, pc.MaxConns)
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToCreatePool, err)
	}

	log := logger.FromContext(ctx)
	backoff := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewExponential(ConnectRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			log.Warn(LogMsgPingFailed, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToPingDatabase, err)
	}

	log.Info(LogMsgSuccessfullyConnectedToDatabase, "max_conns", pc.MaxConns, "application_name", cfg.ApplicationName)
	return pool, nil
}
