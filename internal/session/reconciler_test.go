package session

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
	"github.com/osse101/MinerSync_Go/internal/repository"
	"github.com/osse101/MinerSync_Go/internal/repository/memstore"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

const testAccount = "acct-1"

var (
	testEpoch   = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	testRate    = decimal.RequireFromString("0.00125")
	fullSession = decimal.RequireFromString("108")
)

// queueDispatcher holds jobs until the test runs them, so push ordering is explicit.
type queueDispatcher struct {
	mu   sync.Mutex
	jobs []worker.Job
}

func (q *queueDispatcher) Enqueue(job worker.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *queueDispatcher) Run(ctx context.Context) error {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	var last error
	for _, job := range jobs {
		if err := job.Process(ctx); err != nil {
			last = err
		}
	}
	return last
}

type inlineDispatcher struct{}

func (inlineDispatcher) Enqueue(job worker.Job) {
	_ = job.Process(context.Background())
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) subscribe(bus event.Bus) {
	for _, typ := range []event.Type{event.SessionStateChanged, event.BalanceChanged, event.SessionConflict} {
		bus.Subscribe(typ, func(_ context.Context, evt event.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, evt)
			return nil
		})
	}
}

func (r *recorder) count(typ event.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, evt := range r.events {
		if evt.Type == typ {
			n++
		}
	}
	return n
}

type device struct {
	r        *Reconciler
	cache    *localcache.Memory
	queue    *queueDispatcher
	recorder *recorder
}

type deviceOption func(*Deps)

func withDispatcher(d Dispatcher) deviceOption {
	return func(deps *Deps) { deps.Dispatcher = d }
}

func withCache(c localcache.Store) deviceOption {
	return func(deps *Deps) { deps.Cache = c }
}

func newDevice(t *testing.T, remote repository.RemoteStore, clock domain.Clock, id domain.DeviceID, opts ...deviceOption) *device {
	t.Helper()
	bus := event.NewMemoryBus()
	registry := boost.NewRegistry()
	d := &device{
		cache:    localcache.NewMemory(),
		queue:    &queueDispatcher{},
		recorder: &recorder{},
	}
	d.recorder.subscribe(bus)

	deps := Deps{
		Remote:     remote,
		Cache:      d.cache,
		Engine:     rate.NewEngine(testRate, 24*time.Hour, registry),
		Boosts:     boost.NewService(registry, remote, bus, clock, testAccount, time.Minute),
		Bus:        bus,
		Clock:      clock,
		Dispatcher: d.queue,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	d.r = NewReconciler(Config{
		AccountID:      testAccount,
		DeviceID:       id,
		CacheTTL:       5 * time.Minute,
		PushRetryDelay: time.Millisecond,
	}, deps)
	return d
}

func setup(t *testing.T) (*memstore.Store, *domain.SimulatedClock) {
	t.Helper()
	clock := domain.NewSimulatedClock(testEpoch)
	store := memstore.New(clock)
	store.CreateAccount(testAccount, decimal.Zero)
	return store, clock
}

func TestStart_WritesLocallyBeforePush(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	require.NoError(t, a.r.Start(ctx))

	status := a.r.Status(clock.Now())
	assert.Equal(t, domain.StateActive, status.State)
	assert.Equal(t, domain.OriginLocal, status.Origin)
	assert.True(t, status.PendingPush)
	assert.False(t, store.Session(testAccount).Active, "push has not run yet")

	cached, found, err := a.cache.Load(ctx, testAccount)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.Session.Active)
	assert.True(t, cached.PendingPush)

	require.NoError(t, a.queue.Run(ctx))
	remote := store.Session(testAccount)
	assert.True(t, remote.Active)
	assert.Equal(t, domain.DeviceID("device-a"), remote.OwningDevice)
	assert.False(t, a.r.Status(clock.Now()).PendingPush)
}

func TestStart_RejectsWhenActive(t *testing.T) {
	store, clock := setup(t)
	a := newDevice(t, store, clock, "device-a")

	require.NoError(t, a.r.Start(context.Background()))
	assert.ErrorIs(t, a.r.Start(context.Background()), domain.ErrSessionActive)
}

func TestTwoDevicesConverge(t *testing.T) {
	tests := []struct {
		name        string
		firstToPush string
	}{
		{name: "earlier start pushes first", firstToPush: "a"},
		{name: "later start pushes first", firstToPush: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clock := setup(t)
			ctx := context.Background()
			a := newDevice(t, store, clock, "device-a")
			b := newDevice(t, store, clock, "device-b")

			require.NoError(t, a.r.Start(ctx))
			clock.Advance(500 * time.Millisecond)
			require.NoError(t, b.r.Start(ctx))

			winner, loser := a, b
			if tt.firstToPush == "b" {
				winner, loser = b, a
			}
			require.NoError(t, winner.queue.Run(ctx))
			require.NoError(t, loser.queue.Run(ctx))

			assert.Equal(t, domain.StateActive, winner.r.State())
			assert.Equal(t, domain.StateConflict, loser.r.State())
			assert.Equal(t, 1, loser.recorder.count(event.SessionConflict))

			require.NoError(t, a.r.FullSync(ctx))
			require.NoError(t, b.r.FullSync(ctx))

			now := clock.Now()
			sa, sb := a.r.Status(now), b.r.Status(now)
			require.NotNil(t, sa.StartTime)
			require.NotNil(t, sb.StartTime)
			assert.True(t, sa.StartTime.Equal(*sb.StartTime))
			assert.Equal(t, sa.OwningDevice, sb.OwningDevice)
			assert.True(t, store.Session(testAccount).SameClaim(domain.Session{
				OwningDevice: sa.OwningDevice,
				StartTime:    *sa.StartTime,
			}))
		})
	}
}

func TestTwoDevicesConverge_InlineDispatch(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a", withDispatcher(inlineDispatcher{}))
	b := newDevice(t, store, clock, "device-b", withDispatcher(inlineDispatcher{}))

	require.NoError(t, a.r.Start(ctx))
	clock.Advance(900 * time.Millisecond)
	require.NoError(t, b.r.Start(ctx))

	assert.Equal(t, domain.StateActive, a.r.State())
	assert.Equal(t, domain.StateConflict, b.r.State())
	assert.Equal(t, domain.DeviceID("device-a"), b.r.Status(clock.Now()).OwningDevice)

	require.NoError(t, b.r.Acknowledge(ctx))
	assert.Equal(t, domain.StateActive, b.r.State())
	assert.Equal(t, domain.OriginRemote, b.r.Status(clock.Now()).Origin)
	assert.ErrorIs(t, b.r.Acknowledge(ctx), domain.ErrNoConflict)
}

func TestTwoDevicesConverge_SkewedClocks(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a", withDispatcher(inlineDispatcher{}))
	b := newDevice(t, store, domain.Skewed(clock, -700*time.Millisecond), "device-b", withDispatcher(inlineDispatcher{}))

	require.NoError(t, a.r.Start(ctx))
	clock.Advance(200 * time.Millisecond)
	// b's local start time reads earlier than a's, but a's claim landed first.
	require.NoError(t, b.r.Start(ctx))

	assert.Equal(t, domain.StateActive, a.r.State())
	assert.Equal(t, domain.StateConflict, b.r.State())
	assert.Equal(t, domain.DeviceID("device-a"), store.Session(testAccount).OwningDevice)
}

func TestExpiry_CreditsFullSessionOnce(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	clock.Advance(25 * time.Hour)
	require.NoError(t, a.r.Tick(ctx))
	require.NoError(t, a.r.Tick(ctx))

	assert.Equal(t, domain.StateIdle, a.r.State())
	assert.True(t, store.Balance(testAccount).Equal(fullSession), "got %s", store.Balance(testAccount))
	assert.True(t, a.r.Status(clock.Now()).Balance.Equal(fullSession))
	assert.False(t, store.Session(testAccount).Active)
	assert.Equal(t, 1, store.Calls(memstore.OpCreditSession))
	assert.Equal(t, 1, a.recorder.count(event.BalanceChanged))
}

func TestComplete_RetryAfterResetFailureCreditsOnce(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))
	clock.Advance(24 * time.Hour)

	store.FailNext(memstore.OpResetSession, domain.ErrTransient)
	err := a.r.Tick(ctx)
	require.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, domain.StateCompleting, a.r.State())

	clock.Advance(10 * time.Minute)
	require.NoError(t, a.r.Complete(ctx))

	assert.Equal(t, domain.StateIdle, a.r.State())
	assert.Equal(t, 2, store.Calls(memstore.OpCreditSession))
	assert.True(t, store.Balance(testAccount).Equal(fullSession), "got %s", store.Balance(testAccount))
}

func TestComplete_RequiresCompleting(t *testing.T) {
	store, clock := setup(t)
	a := newDevice(t, store, clock, "device-a")

	assert.ErrorIs(t, a.r.Complete(context.Background()), domain.ErrSessionNotCompleting)
}

func TestStop_CreditsElapsedTime(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	assert.ErrorIs(t, a.r.Stop(ctx), domain.ErrNoActiveSession)

	require.NoError(t, a.r.Start(ctx))
	clock.Advance(2 * time.Hour)
	require.NoError(t, a.r.Stop(ctx), "pending claim is pushed before crediting")

	assert.Equal(t, domain.StateIdle, a.r.State())
	assert.True(t, store.Balance(testAccount).Equal(decimal.NewFromInt(9)), "got %s", store.Balance(testAccount))
	assert.Equal(t, 1, store.Calls(memstore.OpClaimSession))
}

// blockingStore holds ReadAccount until released.
type blockingStore struct {
	*memstore.Store
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) ReadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.ReadAccount(ctx, accountID)
}

func TestStart_RejectedWhileReconciling(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	blocking := &blockingStore{Store: store, entered: make(chan struct{}, 1), release: make(chan struct{})}
	a := newDevice(t, blocking, clock, "device-a")

	done := make(chan error, 1)
	go func() { done <- a.r.FullSync(ctx) }()
	<-blocking.entered

	assert.Equal(t, domain.StateReconciling, a.r.State())
	assert.ErrorIs(t, a.r.Start(ctx), domain.ErrReconcileInProgress)
	assert.ErrorIs(t, a.r.FullSync(ctx), domain.ErrReconcileInProgress)

	close(blocking.release)
	require.NoError(t, <-done)
	assert.Equal(t, domain.StateIdle, a.r.State())
	require.NoError(t, a.r.Start(ctx))
}

func TestFullSync_AdoptsRemoteSession(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	start := clock.Now().Add(-time.Hour)
	store.SetSession(testAccount, domain.Session{Active: true, StartTime: start, OwningDevice: "device-b", LastServerUpdate: start})

	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.FullSync(ctx))

	status := a.r.Status(clock.Now())
	assert.Equal(t, domain.StateActive, status.State)
	assert.Equal(t, domain.OriginRemote, status.Origin)
	assert.Equal(t, (23 * time.Hour).Milliseconds(), status.RemainingMillis)
	assert.True(t, status.Accrued.Equal(decimal.RequireFromString("4.5")))
}

func TestFullSync_RemoteOverridesLocal(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	clock.Advance(time.Minute)
	store.SetSession(testAccount, domain.Session{Active: true, StartTime: clock.Now(), OwningDevice: "device-b", LastServerUpdate: clock.Now()})

	require.NoError(t, a.r.FullSync(ctx))
	assert.Equal(t, domain.StateConflict, a.r.State())
	assert.Equal(t, 1, a.recorder.count(event.SessionConflict))
	assert.Equal(t, domain.DeviceID("device-b"), a.r.Status(clock.Now()).OwningDevice)

	assert.ErrorIs(t, a.r.Stop(ctx), domain.ErrNoActiveSession)
	require.NoError(t, a.r.Acknowledge(ctx))
	assert.Equal(t, domain.StateActive, a.r.State())
}

func TestFullSync_KeepsNewerLocalWrite(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	store.SetOffline(domain.ErrTransient)
	require.NoError(t, a.r.Start(ctx))
	require.ErrorIs(t, a.queue.Run(ctx), domain.ErrTransient)
	assert.True(t, a.r.Status(clock.Now()).PendingPush)

	clock.Advance(time.Minute)
	store.SetOffline(nil)
	require.NoError(t, a.r.FullSync(ctx))

	assert.Equal(t, domain.StateActive, a.r.State())
	assert.Equal(t, domain.OriginLocal, a.r.Status(clock.Now()).Origin)

	require.NoError(t, a.queue.Run(ctx))
	assert.Equal(t, domain.DeviceID("device-a"), store.Session(testAccount).OwningDevice)
	assert.False(t, a.r.Status(clock.Now()).PendingPush)
}

func TestFullSync_FailureRestoresState(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	store.FailNext(memstore.OpReadAccount, domain.ErrTransient)
	require.ErrorIs(t, a.r.FullSync(ctx), domain.ErrTransient)
	assert.Equal(t, domain.StateActive, a.r.State())
}

func TestLightSync_FlagsDivergence(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	clock.Advance(time.Minute)
	store.SetSession(testAccount, domain.Session{Active: true, StartTime: clock.Now(), OwningDevice: "device-b", LastServerUpdate: clock.Now()})

	reads := store.Calls(memstore.OpReadAccount)
	require.NoError(t, a.r.LightSync(ctx))
	assert.True(t, a.r.Divergent())
	assert.Equal(t, domain.StateActive, a.r.State(), "a light read never resolves ownership")
	assert.Equal(t, reads, store.Calls(memstore.OpReadAccount))
	assert.Equal(t, 1, store.Calls(memstore.OpReadSession))

	require.NoError(t, a.r.FullSync(ctx))
	assert.False(t, a.r.Divergent())
	assert.Equal(t, domain.StateConflict, a.r.State())
}

func TestLightSync_FailureKeepsState(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	store.SetSession(testAccount, domain.Session{Active: true, StartTime: clock.Now(), OwningDevice: "device-b", LastServerUpdate: clock.Now()})
	store.FailNext(memstore.OpReadSession, domain.ErrTransient)

	require.ErrorIs(t, a.r.LightSync(ctx), domain.ErrTransient)
	assert.Equal(t, domain.StateActive, a.r.State())
	assert.False(t, a.r.Divergent())
	assert.Equal(t, 0, a.recorder.count(event.SessionConflict))
}

func TestLightSync_AcknowledgesLandedClaim(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")

	store.SetOffline(domain.ErrTransient)
	require.NoError(t, a.r.Start(ctx))
	_ = a.queue.Run(ctx)
	store.SetOffline(nil)

	start := a.r.Status(clock.Now()).StartTime
	require.NotNil(t, start)
	store.SetSession(testAccount, domain.Session{Active: true, StartTime: *start, OwningDevice: "device-a", LastServerUpdate: clock.Now()})

	require.NoError(t, a.r.LightSync(ctx))
	assert.False(t, a.r.Status(clock.Now()).PendingPush)
	assert.False(t, a.r.Divergent())
}

func TestClaim_SettlesExpiredForeignSession(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	stale := clock.Now().Add(-30 * time.Hour)
	store.SetSession(testAccount, domain.Session{Active: true, StartTime: stale, OwningDevice: "device-b", LastServerUpdate: stale})

	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	assert.Equal(t, domain.StateActive, a.r.State())
	assert.Equal(t, domain.DeviceID("device-a"), store.Session(testAccount).OwningDevice)
	assert.True(t, store.Balance(testAccount).Equal(fullSession), "got %s", store.Balance(testAccount))
	assert.True(t, a.r.Status(clock.Now()).Balance.Equal(fullSession))
}

func TestBootstrap(t *testing.T) {
	t.Run("restores cached session while offline", func(t *testing.T) {
		store, clock := setup(t)
		ctx := context.Background()
		first := newDevice(t, store, clock, "device-a")
		require.NoError(t, first.r.Start(ctx))
		require.NoError(t, first.queue.Run(ctx))
		require.NoError(t, first.r.Background(ctx))
		started := first.r.Status(clock.Now()).StartTime

		clock.Advance(time.Hour)
		store.SetOffline(domain.ErrTransient)
		second := newDevice(t, store, clock, "device-a", withCache(first.cache))
		require.NoError(t, second.r.Bootstrap(ctx))

		status := second.r.Status(clock.Now())
		assert.Equal(t, domain.StateActive, status.State)
		assert.Equal(t, domain.OriginLocal, status.Origin)
		require.NotNil(t, status.StartTime)
		assert.True(t, started.Equal(*status.StartTime))
	})

	t.Run("unknown account is fatal", func(t *testing.T) {
		clock := domain.NewSimulatedClock(testEpoch)
		a := newDevice(t, memstore.New(clock), clock, "device-a")
		assert.ErrorIs(t, a.r.Bootstrap(context.Background()), domain.ErrAccountNotFound)
	})

	t.Run("missing account id", func(t *testing.T) {
		store, clock := setup(t)
		a := newDevice(t, store, clock, "device-a")
		a.r.cfg.AccountID = ""
		assert.ErrorIs(t, a.r.Bootstrap(context.Background()), domain.ErrUnauthenticated)
	})

	t.Run("expired cached session is completed", func(t *testing.T) {
		store, clock := setup(t)
		ctx := context.Background()
		first := newDevice(t, store, clock, "device-a")
		require.NoError(t, first.r.Start(ctx))
		require.NoError(t, first.queue.Run(ctx))

		clock.Advance(48 * time.Hour)
		second := newDevice(t, store, clock, "device-a", withCache(first.cache))
		require.NoError(t, second.r.Bootstrap(ctx))

		assert.Equal(t, domain.StateIdle, second.r.State())
		assert.True(t, store.Balance(testAccount).Equal(fullSession), "got %s", store.Balance(testAccount))
	})
}

func TestReward_IsIdempotent(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	five := decimal.NewFromInt(5)

	total, err := a.r.Reward(ctx, five, domain.SourceReferral, "referral:friend-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(five))

	total, err = a.r.Reward(ctx, five, domain.SourceReferral, "referral:friend-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(five))
	assert.Equal(t, 1, a.recorder.count(event.BalanceChanged))

	_, err = a.r.Reward(ctx, decimal.Zero, domain.SourceReferral, "referral:friend-2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReward_KeyCannotShadowSessionCredit(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))
	start := a.r.Status(clock.Now()).StartTime
	require.NotNil(t, start)

	one := decimal.NewFromInt(1)
	_, err := a.r.Reward(ctx, one, domain.SourceReferral, repository.SessionIdempotencyKey(*start))
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	require.NoError(t, a.r.Tick(ctx))

	assert.Equal(t, domain.StateIdle, a.r.State())
	want := fullSession.Add(one)
	assert.True(t, store.Balance(testAccount).Equal(want), "got %s", store.Balance(testAccount))
}

func TestExpiry_CreditsWithBoostGrantedElsewhere(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Bootstrap(ctx))
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	require.NoError(t, store.UpsertBoost(ctx, testAccount, domain.BoostEntry{
		Kind:       domain.BoostPermanent,
		Multiplier: decimal.NewFromInt(2),
		Permanent:  true,
		Source:     "device-b",
	}))

	clock.Advance(25 * time.Hour)
	require.NoError(t, a.r.Tick(ctx))

	want := fullSession.Mul(decimal.NewFromInt(2))
	assert.Equal(t, domain.StateIdle, a.r.State())
	assert.True(t, store.Balance(testAccount).Equal(want), "got %s", store.Balance(testAccount))
}

func TestStop_CreditsWithCachedBoostsWhenReadFails(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))

	clock.Advance(2 * time.Hour)
	store.FailNext(memstore.OpReadBoosts, domain.ErrTransient)
	require.NoError(t, a.r.Stop(ctx))

	assert.Equal(t, domain.StateIdle, a.r.State())
	assert.True(t, store.Balance(testAccount).Equal(decimal.NewFromInt(9)), "got %s", store.Balance(testAccount))
}

func TestStatus_IsLocalOnly(t *testing.T) {
	store, clock := setup(t)
	ctx := context.Background()
	a := newDevice(t, store, clock, "device-a")
	require.NoError(t, a.r.Start(ctx))
	require.NoError(t, a.queue.Run(ctx))
	reads := store.Reads()

	status := a.r.Status(clock.Now().Add(time.Hour))
	assert.Equal(t, (23 * time.Hour).Milliseconds(), status.RemainingMillis)
	assert.True(t, status.Accrued.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, status.RatePerSecond.Equal(testRate))
	assert.Equal(t, reads, store.Reads())
}
