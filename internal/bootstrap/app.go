package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/osse101/MinerSync_Go/internal/boost"
	"github.com/osse101/MinerSync_Go/internal/config"
	"github.com/osse101/MinerSync_Go/internal/device"
	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/localcache"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/rate"
	"github.com/osse101/MinerSync_Go/internal/scheduler"
	"github.com/osse101/MinerSync_Go/internal/server"
	"github.com/osse101/MinerSync_Go/internal/session"
	"github.com/osse101/MinerSync_Go/internal/sse"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

// App is the fully wired daemon.
type App struct {
	Config     *config.Config
	Clock      domain.Clock
	DeviceID   domain.DeviceID
	Remote     *Remote
	Events     *EventSystem
	Hub        *sse.Hub
	Pool       *worker.Pool
	Expiry     *worker.ExpiryWorker
	Boosts     boost.Service
	Reconciler *session.Reconciler
	Scheduler  *scheduler.Scheduler
	Server     *server.Server
}

// Build wires every component for cfg. Nothing is started.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	clock := domain.NewRealClock()

	deviceID, err := device.LoadOrCreate(cfg.DeviceIDPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedDeviceID, err)
	}
	logger.AddBaseAttr(logger.AttrKeyDeviceID, string(deviceID))
	slog.Info(LogMsgDeviceIdentity, "path", cfg.DeviceIDPath)

	cache, err := localcache.NewFileStore(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedCacheStore, err)
	}

	remote, err := InitializeRemote(ctx, cfg, clock)
	if err != nil {
		return nil, err
	}

	events, err := InitializeEventSystem(cfg, clock)
	if err != nil {
		remote.Close()
		return nil, err
	}

	hub := sse.NewHub(clock)
	RegisterEventHandlers(events.Bus, hub)

	registry := boost.NewRegistry()
	boosts := boost.NewService(registry, remote.Store, events.Publisher, clock, cfg.AccountID, cfg.BoostTTL)
	engine := rate.NewEngine(cfg.BaseRate, cfg.SessionDuration, registry)

	pool := worker.NewPool(cfg.WorkerCount, JobQueueSize)
	expiry := worker.NewExpiryWorker(clock)

	rec := session.NewReconciler(session.Config{
		AccountID:      cfg.AccountID,
		DeviceID:       deviceID,
		CacheTTL:       cfg.CacheTTL,
		PushMaxRetries: cfg.PushMaxRetries,
		PushRetryDelay: cfg.PushRetryDelay,
	}, session.Deps{
		Remote:     remote.Store,
		Cache:      cache,
		Engine:     engine,
		Boosts:     boosts,
		Bus:        events.Publisher,
		Clock:      clock,
		Dispatcher: pool,
		Expiry:     expiry,
	})

	sched := scheduler.New(rec, pool, clock, cfg.MinSyncInterval, cfg.PeriodicSyncInterval)

	srv := server.NewServer(cfg.Port, cfg.APIKey, cfg.TrustedProxies, server.Deps{
		Remote:    remote.Pinger,
		Sessions:  rec,
		Lifecycle: sched,
		Boosts:    boosts,
		Hub:       hub,
		Clock:     clock,
		DeviceID:  string(deviceID),
	})

	return &App{
		Config:     cfg,
		Clock:      clock,
		DeviceID:   deviceID,
		Remote:     remote,
		Events:     events,
		Hub:        hub,
		Pool:       pool,
		Expiry:     expiry,
		Boosts:     boosts,
		Reconciler: rec,
		Scheduler:  sched,
		Server:     srv,
	}, nil
}

// Run starts the workers, restores the session, serves HTTP until ctx is done, then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.Pool.Start()
	a.Hub.Start()

	if err := a.Reconciler.Bootstrap(ctx); err != nil {
		a.shutdown()
		return fmt.Errorf("%s: %w", ErrMsgFailedBootstrap, err)
	}
	slog.Info(LogMsgSessionRestored, "state", a.Reconciler.State())

	// The daemon starts with the app in the foreground.
	if err := a.Scheduler.OnAppForeground(ctx); err != nil {
		slog.Warn(LogMsgForegroundSyncFailed, "error", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			slog.Error(LogMsgServerFailed, "error", err)
			runErr = err
		}
	}

	a.shutdown()
	return runErr
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	GracefulShutdown(ctx, ShutdownComponents{
		Server:     a.Server,
		Scheduler:  a.Scheduler,
		Reconciler: a.Reconciler,
		Expiry:     a.Expiry,
		Pool:       a.Pool,
		Hub:        a.Hub,
		Events:     a.Events,
		Remote:     a.Remote,
	})
}
