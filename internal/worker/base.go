package worker

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/MinerSync_Go/internal/logger"
)

// timerSet holds at most one pending timer per key. Arming a key replaces its
// previous timer; a timer that was replaced or disarmed never runs its callback
// even if it already fired.
type timerSet struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	closed  bool
	running sync.WaitGroup
}

func newTimerSet() timerSet {
	return timerSet{timers: make(map[string]*time.Timer)}
}

// arm schedules fn after delay under key. It returns false once the set is closed.
func (s *timerSet) arm(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if prev, ok := s.timers[key]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		if !s.claim(key, t) {
			return
		}
		defer s.running.Done()
		fn()
	})
	s.timers[key] = t
	return true
}

// claim removes t if it is still the live timer for key and registers the
// callback as running.
func (s *timerSet) claim(key string, t *time.Timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timers[key] != t {
		return false
	}
	delete(s.timers, key)
	s.running.Add(1)
	return true
}

func (s *timerSet) disarm(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *timerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// close stops every pending timer and waits for running callbacks or ctx.
func (s *timerSet) close(ctx context.Context, name string) error {
	log := logger.FromContext(ctx).With("worker", name)

	s.mu.Lock()
	s.closed = true
	for key, t := range s.timers {
		t.Stop()
		log.Debug(LogMsgTimerCancelled, "key", key)
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info(LogMsgWorkerStopped)
		return nil
	case <-ctx.Done():
		log.Warn(LogMsgWorkerStopTimeout)
		return ctx.Err()
	}
}
