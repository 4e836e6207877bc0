package worker

import (
	"context"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

const expiryWorkerName = "expiry"

// ExpiryWorker fires a callback when a session reaches its end instant.
// Each key holds at most one pending timer.
type ExpiryWorker struct {
	timers timerSet
	clock  domain.Clock
}

// NewExpiryWorker creates an expiry worker measuring delays against clock.
func NewExpiryWorker(clock domain.Clock) *ExpiryWorker {
	return &ExpiryWorker{timers: newTimerSet(), clock: clock}
}

// Schedule runs fn at the instant at, replacing any pending timer for key.
// Instants already in the past fire immediately. Nothing is scheduled after Shutdown.
func (w *ExpiryWorker) Schedule(key string, at time.Time, fn func(ctx context.Context)) {
	delay := at.Sub(w.clock.Now())
	if delay < 0 {
		delay = 0
	}
	if w.timers.arm(key, delay, func() { fn(context.Background()) }) {
		logger.FromContext(context.Background()).Debug(LogMsgExpiryScheduled, "key", key, "delay", delay)
	}
}

// Cancel stops the pending timer for key, if any.
func (w *ExpiryWorker) Cancel(key string) {
	w.timers.disarm(key)
}

// Pending returns the number of scheduled timers.
func (w *ExpiryWorker) Pending() int {
	return w.timers.len()
}

// Shutdown cancels pending timers and waits for running callbacks.
func (w *ExpiryWorker) Shutdown(ctx context.Context) error {
	return w.timers.close(ctx, expiryWorkerName)
}
