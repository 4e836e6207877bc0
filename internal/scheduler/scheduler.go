// Package scheduler decides when the session reconciler talks to the remote store.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

// Reconciler is the part of the session reconciler the scheduler drives.
type Reconciler interface {
	FullSync(ctx context.Context) error
	LightSync(ctx context.Context) error
	RefreshBoosts(ctx context.Context) error
	Tick(ctx context.Context) error
	Background(ctx context.Context) error
	LastSync() time.Time
	Divergent() bool
	Active() bool
}

// Dispatcher runs periodic jobs off the ticker goroutine.
type Dispatcher interface {
	Enqueue(job worker.Job)
}

// Scheduler runs full syncs on foreground and light syncs on a fixed interval
// while the app is in the foreground.
type Scheduler struct {
	rec             Reconciler
	pool            Dispatcher
	clock           domain.Clock
	minSyncInterval time.Duration
	interval        time.Duration

	mu   sync.Mutex
	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a scheduler. Nothing runs until OnAppForeground.
func New(rec Reconciler, pool Dispatcher, clock domain.Clock, minSyncInterval, interval time.Duration) *Scheduler {
	return &Scheduler{
		rec:             rec,
		pool:            pool,
		clock:           clock,
		minSyncInterval: minSyncInterval,
		interval:        interval,
	}
}

// OnAppForeground reconciles with one full read unless the last one is recent
// enough, then starts the periodic timer. Divergence flagged by a light sync always
// gets the full read; it is the only place that may turn into a conflict.
func (s *Scheduler) OnAppForeground(ctx context.Context) error {
	log := logger.FromContext(ctx)
	var err error
	if last := s.rec.LastSync(); !last.IsZero() && s.clock.Now().Sub(last) < s.minSyncInterval && !s.rec.Divergent() {
		metrics.SyncsSkipped.Inc()
		log.Debug(LogMsgForegroundSkipped, "last_sync", last)
		err = s.rec.Tick(ctx)
	} else {
		log.Debug(LogMsgForegroundSync)
		err = s.rec.FullSync(ctx)
	}
	s.start()
	return err
}

// OnAppBackground stops the periodic timer and flushes pending state once.
// In-flight requests are not cancelled.
func (s *Scheduler) OnAppBackground(ctx context.Context) error {
	s.Stop()
	return s.rec.Background(ctx)
}

// Running reports whether the periodic timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quit != nil
}

// Stop stops the periodic timer. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	quit := s.quit
	s.quit = nil
	s.mu.Unlock()

	if quit != nil {
		close(quit)
	}
	s.wg.Wait()
}

// Periodic is the work done on every timer fire: expiry first, then a light read
// and a boost refresh while a session runs. It never resolves ownership; a
// divergent light read stays flagged until the next foreground sync.
func (s *Scheduler) Periodic(ctx context.Context) error {
	if err := s.rec.Tick(ctx); err != nil {
		return err
	}
	if !s.rec.Active() {
		return nil
	}
	return errors.Join(s.rec.LightSync(ctx), s.rec.RefreshBoosts(ctx))
}

func (s *Scheduler) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil || s.interval <= 0 {
		return
	}
	quit := make(chan struct{})
	s.quit = quit

	job := worker.JobFunc{Name: JobPeriodicSync, Fn: func(ctx context.Context) error {
		err := s.Periodic(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn(LogMsgPeriodicFailed, "error", err)
		}
		return err
	}}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.pool.Enqueue(job)
			case <-quit:
				return
			}
		}
	}()
}
