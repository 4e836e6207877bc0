package bootstrap

import (
	"context"
	"log/slog"

	"github.com/osse101/MinerSync_Go/internal/scheduler"
	"github.com/osse101/MinerSync_Go/internal/server"
	"github.com/osse101/MinerSync_Go/internal/session"
	"github.com/osse101/MinerSync_Go/internal/sse"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

// ShutdownComponents holds all components that need graceful shutdown.
type ShutdownComponents struct {
	Server     *server.Server
	Scheduler  *scheduler.Scheduler
	Reconciler *session.Reconciler
	Expiry     *worker.ExpiryWorker
	Pool       *worker.Pool
	Hub        *sse.Hub
	Events     *EventSystem
	Remote     *Remote
}

// GracefulShutdown stops components in order:
// 1. HTTP server (stop accepting new requests)
// 2. Scheduler ticker, then a background flush of the session to cache and remote
// 3. Expiry timers and the worker pool
// 4. SSE hub and event publisher retries
// 5. Remote store connections
//
// Errors during shutdown are logged but do not stop the shutdown sequence.
func GracefulShutdown(ctx context.Context, c ShutdownComponents) {
	slog.Info(LogMsgShuttingDownServer)

	if c.Server != nil {
		if err := c.Server.Stop(ctx); err != nil {
			slog.Error(LogMsgServerForcedShutdown, "error", err)
		}
	}

	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Reconciler != nil {
		if err := c.Reconciler.Background(ctx); err != nil {
			slog.Warn(LogMsgBackgroundFlushFailed, "error", err)
		}
	}

	if c.Expiry != nil {
		if err := c.Expiry.Shutdown(ctx); err != nil {
			slog.Error(LogMsgExpiryWorkerShutdownFailed, "error", err)
		}
	}
	if c.Pool != nil {
		c.Pool.Stop()
	}
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Events != nil {
		slog.Info(LogMsgShuttingDownEventPublisher)
		waitOrTimeout(ctx, c.Events.Publisher.Wait)
		if err := c.Events.DeadLetter.Close(); err != nil {
			slog.Error(LogMsgDeadLetterCloseFailed, "error", err)
		}
	}

	if c.Remote != nil {
		c.Remote.Close()
	}

	slog.Info(LogMsgServerStopped)
}

// waitOrTimeout runs wait and returns when it finishes or ctx ends, whichever is first.
func waitOrTimeout(ctx context.Context, wait func()) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
