package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/MinerSync_Go/internal/boost"
	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/localcache"
	"github.com/osse101/MinerSync_Go/internal/rate"
	"github.com/osse101/MinerSync_Go/internal/repository/memstore"
	"github.com/osse101/MinerSync_Go/internal/session"
	"github.com/osse101/MinerSync_Go/internal/testing/leaktest"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

type fakeReconciler struct {
	mu         sync.Mutex
	calls      map[string]int
	lastSync   time.Time
	divergent  bool
	active     bool
	periodicCh chan struct{}
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{calls: make(map[string]int), periodicCh: make(chan struct{}, 16)}
}

func (f *fakeReconciler) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeReconciler) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeReconciler) FullSync(ctx context.Context) error {
	f.record("full")
	f.mu.Lock()
	f.divergent = false
	f.mu.Unlock()
	return nil
}

func (f *fakeReconciler) LightSync(ctx context.Context) error {
	f.record("light")
	select {
	case f.periodicCh <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeReconciler) RefreshBoosts(ctx context.Context) error {
	f.record("boosts")
	return nil
}

func (f *fakeReconciler) Tick(ctx context.Context) error       { f.record("tick"); return nil }
func (f *fakeReconciler) Background(ctx context.Context) error { f.record("background"); return nil }

func (f *fakeReconciler) LastSync() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSync
}

func (f *fakeReconciler) Divergent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.divergent
}

func (f *fakeReconciler) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func TestOnAppForeground(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastSync  time.Time
		divergent bool
		wantFull  int
		wantTick  int
	}{
		{name: "never synced", lastSync: time.Time{}, wantFull: 1},
		{name: "stale sync", lastSync: now.Add(-10 * time.Minute), wantFull: 1},
		{name: "recent sync", lastSync: now.Add(-time.Minute), wantTick: 1},
		{name: "recent sync with divergence", lastSync: now.Add(-time.Minute), divergent: true, wantFull: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFakeReconciler()
			rec.lastSync = tt.lastSync
			rec.divergent = tt.divergent
			sched := New(rec, inline{}, domain.NewSimulatedClock(now), 5*time.Minute, 0)

			require.NoError(t, sched.OnAppForeground(context.Background()))
			assert.Equal(t, tt.wantFull, rec.count("full"))
			assert.Equal(t, tt.wantTick, rec.count("tick"))
		})
	}
}

func TestPeriodic(t *testing.T) {
	t.Run("idle only checks expiry", func(t *testing.T) {
		rec := newFakeReconciler()
		sched := New(rec, nil, domain.NewRealClock(), time.Minute, time.Minute)

		require.NoError(t, sched.Periodic(context.Background()))
		assert.Equal(t, 1, rec.count("tick"))
		assert.Equal(t, 0, rec.count("light"))
	})

	t.Run("active reads session and boosts", func(t *testing.T) {
		rec := newFakeReconciler()
		rec.active = true
		sched := New(rec, nil, domain.NewRealClock(), time.Minute, time.Minute)

		require.NoError(t, sched.Periodic(context.Background()))
		assert.Equal(t, 1, rec.count("light"))
		assert.Equal(t, 1, rec.count("boosts"))
	})

	t.Run("divergence waits for foreground", func(t *testing.T) {
		rec := newFakeReconciler()
		rec.active = true
		rec.divergent = true
		sched := New(rec, nil, domain.NewRealClock(), time.Minute, time.Minute)

		require.NoError(t, sched.Periodic(context.Background()))
		assert.Equal(t, 1, rec.count("light"))
		assert.Equal(t, 0, rec.count("full"))
	})
}

func TestTickerLifecycle(t *testing.T) {
	checker := leaktest.NewGoroutineChecker(t)
	defer checker.Check(0)

	pool := worker.NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	rec := newFakeReconciler()
	rec.active = true
	sched := New(rec, pool, domain.NewRealClock(), time.Minute, 10*time.Millisecond)

	require.NoError(t, sched.OnAppForeground(context.Background()))
	assert.True(t, sched.Running())

	timeout := time.After(time.Second)
	for runs := 0; runs < 2; {
		select {
		case <-rec.periodicCh:
			runs++
		case <-timeout:
			t.Fatal("timeout waiting for periodic sync")
		}
	}

	require.NoError(t, sched.OnAppBackground(context.Background()))
	assert.False(t, sched.Running())
	assert.Equal(t, 1, rec.count("background"))

	sched.Stop()
}

func newSessionReconciler(t *testing.T, store *memstore.Store, clock domain.Clock, device domain.DeviceID) *session.Reconciler {
	t.Helper()
	bus := event.NewMemoryBus()
	registry := boost.NewRegistry()
	return session.NewReconciler(session.Config{
		AccountID:      "acct-1",
		DeviceID:       device,
		PushRetryDelay: time.Millisecond,
	}, session.Deps{
		Remote:     store,
		Cache:      localcache.NewMemory(),
		Engine:     rate.NewEngine(decimal.RequireFromString("0.00125"), 24*time.Hour, registry),
		Boosts:     boost.NewService(registry, store, bus, clock, "acct-1", time.Minute),
		Bus:        bus,
		Clock:      clock,
		Dispatcher: inline{},
	})
}

func setupStore(t *testing.T) (*memstore.Store, *domain.SimulatedClock) {
	t.Helper()
	clock := domain.NewSimulatedClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store := memstore.New(clock)
	store.CreateAccount("acct-1", decimal.Zero)
	return store, clock
}

func TestBackgroundForegroundWithinMinInterval(t *testing.T) {
	store, clock := setupStore(t)
	rec := newSessionReconciler(t, store, clock, "device-a")
	ctx := context.Background()
	require.NoError(t, rec.Bootstrap(ctx))
	require.NoError(t, rec.Start(ctx))

	sched := New(rec, inline{}, clock, 5*time.Minute, 0)
	require.NoError(t, sched.OnAppBackground(ctx))

	reads := store.Reads()
	clock.Advance(2 * time.Minute)
	require.NoError(t, sched.OnAppForeground(ctx))

	assert.Equal(t, reads, store.Reads(), "resume within the minimum interval makes no remote reads")
	status := rec.Status(clock.Now())
	assert.Equal(t, domain.StateActive, status.State)
	assert.Equal(t, (24*time.Hour - 2*time.Minute).Milliseconds(), status.RemainingMillis)
}

func TestPeriodic_NeverEntersConflict(t *testing.T) {
	store, clock := setupStore(t)
	rec := newSessionReconciler(t, store, clock, "device-a")
	ctx := context.Background()
	require.NoError(t, rec.Bootstrap(ctx))
	require.NoError(t, rec.Start(ctx))
	sched := New(rec, inline{}, clock, 5*time.Minute, 0)

	clock.Advance(time.Minute)
	store.SetSession("acct-1", domain.Session{Active: true, StartTime: clock.Now(), OwningDevice: "device-b", LastServerUpdate: clock.Now()})

	for i := 0; i < 3; i++ {
		require.NoError(t, sched.Periodic(ctx))
		clock.Advance(time.Minute)
	}

	status := rec.Status(clock.Now())
	assert.Equal(t, domain.StateActive, status.State)
	assert.True(t, status.Divergent)
	assert.Equal(t, domain.DeviceID("device-a"), status.OwningDevice)

	require.NoError(t, sched.OnAppForeground(ctx))
	sched.Stop()
	assert.Equal(t, domain.StateConflict, rec.State(), "the foreground full read decides the conflict")
	assert.False(t, rec.Divergent())
}

func TestPeriodic_FailureLeavesStateAlone(t *testing.T) {
	store, clock := setupStore(t)
	rec := newSessionReconciler(t, store, clock, "device-a")
	ctx := context.Background()
	require.NoError(t, rec.Bootstrap(ctx))
	require.NoError(t, rec.Start(ctx))
	sched := New(rec, inline{}, clock, 5*time.Minute, 0)
	before := rec.Status(clock.Now())

	store.FailNext(memstore.OpReadSession, domain.ErrTransient)
	err := sched.Periodic(ctx)

	require.ErrorIs(t, err, domain.ErrTransient)
	after := rec.Status(clock.Now())
	assert.Equal(t, domain.StateActive, after.State)
	assert.False(t, after.Divergent)
	assert.Equal(t, before.StartTime, after.StartTime)
	assert.Equal(t, before.OwningDevice, after.OwningDevice)

	require.NoError(t, sched.Periodic(ctx), "the next tick retries")
	assert.Equal(t, domain.StateActive, rec.State())
}

func TestPeriodic_RefreshesBoostsAfterTTL(t *testing.T) {
	store, clock := setupStore(t)
	a := newSessionReconciler(t, store, clock, "device-a")
	ctx := context.Background()
	require.NoError(t, a.Bootstrap(ctx))
	require.NoError(t, a.Start(ctx))
	sched := New(a, inline{}, clock, 5*time.Minute, 0)

	// A permanent boost granted from another device.
	require.NoError(t, store.UpsertBoost(ctx, "acct-1", domain.BoostEntry{
		Kind:       domain.BoostPermanent,
		Multiplier: decimal.NewFromInt(2),
		Permanent:  true,
		Source:     "device-b",
	}))
	boostReads := store.Calls(memstore.OpReadBoosts)

	for i := 0; i < 12; i++ {
		clock.Advance(10 * time.Minute)
		require.NoError(t, sched.Periodic(ctx))
	}

	assert.Greater(t, store.Calls(memstore.OpReadBoosts), boostReads)
	assert.True(t, a.Status(clock.Now()).RatePerSecond.Equal(decimal.RequireFromString("0.0025")),
		"got %s", a.Status(clock.Now()).RatePerSecond)
}

type inline struct{}

func (inline) Enqueue(job worker.Job) { _ = job.Process(context.Background()) }
