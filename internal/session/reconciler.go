// Package session owns the mining session state machine and its reconciliation
// with the shared remote account record.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/boost"
	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/localcache"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/rate"
	"github.com/osse101/MinerSync_Go/internal/repository"
	"github.com/osse101/MinerSync_Go/internal/worker"
)

const defaultPushRetryDelay = 500 * time.Millisecond

// Dispatcher runs jobs asynchronously. worker.Pool satisfies it.
type Dispatcher interface {
	Enqueue(job worker.Job)
}

// ExpiryScheduler fires a callback at a session's end instant. worker.ExpiryWorker satisfies it.
type ExpiryScheduler interface {
	Schedule(key string, at time.Time, fn func(ctx context.Context))
	Cancel(key string)
}

// Config identifies the account and device and tunes remote pushes.
type Config struct {
	AccountID      string
	DeviceID       domain.DeviceID
	CacheTTL       time.Duration
	PushMaxRetries int
	PushRetryDelay time.Duration
}

// Deps are the collaborators of a Reconciler.
type Deps struct {
	Remote     repository.RemoteStore
	Cache      localcache.Store
	Engine     *rate.Engine
	Boosts     boost.Service
	Bus        event.Bus
	Clock      domain.Clock
	Dispatcher Dispatcher
	// Expiry is optional; without it expiry is only detected by Tick.
	Expiry ExpiryScheduler
}

type completion struct {
	start  time.Time
	end    time.Time
	amount decimal.Decimal
	reason string
}

// Reconciler serializes every session transition for one account on this device.
// Remote I/O runs outside the lock; results are applied back under it and dropped
// when a newer transition has happened in between.
type Reconciler struct {
	cfg        Config
	remote     repository.RemoteStore
	cache      localcache.Store
	engine     *rate.Engine
	boosts     boost.Service
	bus        event.Bus
	clock      domain.Clock
	dispatcher Dispatcher
	expiry     ExpiryScheduler

	mu             sync.Mutex
	state          domain.SessionState
	origin         domain.SessionOrigin
	snapshot       domain.CachedSnapshot
	completion     *completion
	generation     uint64
	balanceVersion uint64
	divergent      bool
	lastSync       time.Time
	completing     sync.Mutex
}

// NewReconciler creates an idle reconciler. Call Bootstrap before use.
func NewReconciler(cfg Config, deps Deps) *Reconciler {
	if cfg.PushRetryDelay <= 0 {
		cfg.PushRetryDelay = defaultPushRetryDelay
	}
	return &Reconciler{
		cfg:        cfg,
		remote:     deps.Remote,
		cache:      deps.Cache,
		engine:     deps.Engine,
		boosts:     deps.Boosts,
		bus:        deps.Bus,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		expiry:     deps.Expiry,
		state:      domain.StateIdle,
		snapshot:   domain.CachedSnapshot{AccountID: cfg.AccountID, Balance: decimal.Zero},
	}
}

// Bootstrap restores the cached snapshot and verifies the account with one full read.
// An unreachable remote is tolerated; an unknown account or missing credentials are not.
func (r *Reconciler) Bootstrap(ctx context.Context) error {
	if r.cfg.AccountID == "" {
		return domain.ErrUnauthenticated
	}
	ctx = logger.WithAccount(ctx, r.cfg.AccountID)
	log := logger.FromContext(ctx)

	snapshot, found, err := r.cache.Load(ctx, r.cfg.AccountID)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheCorrupt) {
			return fmt.Errorf("failed to load local cache: %w", err)
		}
		log.Warn(LogMsgCacheCorrupt, "error", err)
		if err := r.cache.Clear(ctx, r.cfg.AccountID); err != nil {
			return fmt.Errorf("failed to clear corrupt cache: %w", err)
		}
	}

	if found {
		r.restore(snapshot)
		r.boosts.Observe(snapshot.Boosts, snapshot.FetchedAt)
	}

	if err := r.FullSync(ctx); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrUnauthenticated) {
			return err
		}
		log.Warn(LogMsgBootstrapOffline, "error", err)
	}

	if err := r.Tick(ctx); err != nil {
		log.Warn(LogMsgExpiryTickFailed, "error", err)
	}
	return nil
}

func (r *Reconciler) restore(snapshot domain.CachedSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.Balance.IsZero() {
		snapshot.Balance = decimal.Zero
	}
	r.snapshot = snapshot
	r.snapshot.AccountID = r.cfg.AccountID
	if snapshot.Session.Active {
		r.state = domain.StateActive
		r.origin = r.originOf(snapshot.Session)
		r.scheduleExpiryLocked()
	}
	r.generation++
}

// Start begins a session on this device. The local copy is written immediately and
// the remote claim is pushed asynchronously.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case domain.StateIdle:
	case domain.StateReconciling:
		r.mu.Unlock()
		return domain.ErrReconcileInProgress
	default:
		r.mu.Unlock()
		return domain.ErrSessionActive
	}

	now := r.now()
	r.snapshot.Session = domain.Session{
		Active:           true,
		StartTime:        now,
		OwningDevice:     r.cfg.DeviceID,
		LastServerUpdate: r.snapshot.Session.LastServerUpdate,
	}
	r.snapshot.LocalWriteAt = now
	r.snapshot.PendingPush = true
	r.transitionLocked(domain.StateActive, domain.OriginLocal)
	r.saveLocked(ctx)
	r.scheduleExpiryLocked()
	events := []event.Event{event.NewSessionStateChangedEvent(r.statusLocked(now))}
	r.mu.Unlock()

	logger.FromContext(ctx).Info(LogMsgSessionStarted, "start", now, "device", r.cfg.DeviceID)
	r.publish(ctx, events)
	r.dispatchPush()
	return nil
}

// Stop ends the active session early, crediting the elapsed interval.
func (r *Reconciler) Stop(ctx context.Context) error {
	if r.State() == domain.StateActive {
		r.refreshBeforeCredit(ctx)
	}

	r.mu.Lock()
	switch r.state {
	case domain.StateActive:
	case domain.StateIdle, domain.StateConflict:
		r.mu.Unlock()
		return domain.ErrNoActiveSession
	case domain.StateCompleting:
		r.mu.Unlock()
		return r.Complete(ctx)
	default:
		r.mu.Unlock()
		return domain.ErrReconcileInProgress
	}

	now := r.now()
	end := now
	if expires := r.engine.ExpiresAt(r.snapshot.Session.StartTime); end.After(expires) {
		end = expires
	}
	events := r.beginCompletionLocked(ctx, end, reasonStopped)
	r.mu.Unlock()

	r.publish(ctx, events)
	return r.Complete(ctx)
}

// Acknowledge accepts the remote session that replaced this device's copy.
func (r *Reconciler) Acknowledge(ctx context.Context) error {
	r.mu.Lock()
	if r.state == domain.StateReconciling {
		r.mu.Unlock()
		return domain.ErrReconcileInProgress
	}
	if r.state != domain.StateConflict {
		r.mu.Unlock()
		return domain.ErrNoConflict
	}

	now := r.now()
	remote := r.snapshot.Session
	var events []event.Event
	complete := false
	switch {
	case !remote.Active:
		r.transitionLocked(domain.StateIdle, domain.OriginNone)
	case remote.Expired(now, r.engine.SessionDuration()):
		events = append(events, r.beginCompletionLocked(ctx, r.engine.ExpiresAt(remote.StartTime), reasonExpired)...)
		complete = true
	default:
		r.transitionLocked(domain.StateActive, domain.OriginRemote)
	}
	r.saveLocked(ctx)
	if !complete {
		events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(now)))
	}
	r.mu.Unlock()

	logger.FromContext(ctx).Info(LogMsgConflictAcked, "remote_device", remote.OwningDevice)
	r.publish(ctx, events)
	if complete {
		return r.Complete(ctx)
	}
	return nil
}

// Background persists local state and pushes pending changes once.
func (r *Reconciler) Background(ctx context.Context) error {
	r.mu.Lock()
	r.saveLocked(ctx)
	pending := r.pushPendingLocked()
	completing := r.state == domain.StateCompleting
	r.mu.Unlock()

	var errs []error
	if pending {
		if err := r.pushClaim(ctx, 0); err != nil {
			errs = append(errs, err)
		}
	}
	if completing {
		if err := r.Complete(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reward credits a side-feature reward through an atomic, idempotent increment.
func (r *Reconciler) Reward(ctx context.Context, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error) {
	if !amount.IsPositive() || source == "" || idempotencyKey == "" {
		return decimal.Zero, fmt.Errorf("%w: reward needs a positive amount, a source and a key", domain.ErrInvalidInput)
	}

	metrics.RemoteWrites.WithLabelValues("increment_balance").Inc()
	total, err := r.remote.IncrementBalance(ctx, r.cfg.AccountID, amount, source, repository.RewardIdempotencyKey(idempotencyKey))
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("increment_balance", err)
		return decimal.Zero, err
	}

	r.mu.Lock()
	events := r.setBalanceLocked(total, source)
	r.saveLocked(ctx)
	r.mu.Unlock()

	r.publish(ctx, events)
	return total, nil
}

// RefreshBoosts reloads remote boosts once the local copy is older than the boost TTL.
func (r *Reconciler) RefreshBoosts(ctx context.Context) error {
	return r.boosts.Refresh(ctx, false)
}

// Status reports the session as seen locally at now. It never touches the network.
func (r *Reconciler) Status(now time.Time) domain.SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(now)
}

// State returns the current state.
func (r *Reconciler) State() domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastSync returns when the last successful full read happened.
func (r *Reconciler) LastSync() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSync
}

// Divergent reports whether a light sync saw a remote session that disagrees with
// the local one and is waiting for a full sync.
func (r *Reconciler) Divergent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.divergent
}

// Active reports whether a session is running or awaiting resolution.
func (r *Reconciler) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot.Session.Active
}

func (r *Reconciler) statusLocked(now time.Time) domain.SessionStatus {
	s := r.snapshot.Session
	status := domain.SessionStatus{
		State:         r.state,
		Origin:        r.origin,
		Active:        s.Active,
		OwningDevice:  s.OwningDevice,
		Balance:       r.snapshot.Balance,
		RatePerSecond: r.engine.EffectiveRatePerSecond(now),
		Accrued:       decimal.Zero,
		PendingPush:   r.snapshot.PendingPush,
		Divergent:     r.divergent,
	}
	if s.Active {
		start := s.StartTime
		status.StartTime = &start
		projection := r.engine.Project(start, now)
		status.RemainingMillis = projection.Remaining.Milliseconds()
		status.Accrued = projection.Accrued
	}
	return status
}

// transitionLocked moves to state and bumps the generation so in-flight results
// computed against the previous state are discarded.
func (r *Reconciler) transitionLocked(state domain.SessionState, origin domain.SessionOrigin) {
	r.state = state
	r.origin = origin
	r.generation++
	metrics.SessionTransitions.WithLabelValues(string(state)).Inc()
	if state == domain.StateIdle {
		r.snapshot.Session.Active = false
		r.snapshot.Session.StartTime = time.Time{}
		r.snapshot.Session.OwningDevice = ""
		r.snapshot.PendingPush = false
		r.completion = nil
		r.cancelExpiryLocked()
	}
}

func (r *Reconciler) setBalanceLocked(total decimal.Decimal, source string) []event.Event {
	r.balanceVersion++
	if total.Equal(r.snapshot.Balance) {
		return nil
	}
	delta := total.Sub(r.snapshot.Balance)
	r.snapshot.Balance = total
	return []event.Event{event.NewBalanceChangedEvent(total, delta, source)}
}

func (r *Reconciler) saveLocked(ctx context.Context) {
	r.snapshot.AccountID = r.cfg.AccountID
	r.snapshot.TTL = r.cfg.CacheTTL
	r.snapshot.UpdatedAt = r.now()
	r.snapshot.Boosts = r.boosts.Active()
	if err := r.cache.Save(ctx, r.snapshot); err != nil {
		logger.FromContext(ctx).Warn(LogMsgCacheSaveFailed, "error", err)
	}
}

func (r *Reconciler) pushPendingLocked() bool {
	return r.snapshot.PendingPush && r.state == domain.StateActive && r.origin == domain.OriginLocal
}

func (r *Reconciler) originOf(s domain.Session) domain.SessionOrigin {
	if s.OwningDevice == r.cfg.DeviceID {
		return domain.OriginLocal
	}
	return domain.OriginRemote
}

func (r *Reconciler) scheduleExpiryLocked() {
	if r.expiry == nil || !r.snapshot.Session.Active {
		return
	}
	r.expiry.Schedule(r.cfg.AccountID, r.engine.ExpiresAt(r.snapshot.Session.StartTime), func(ctx context.Context) {
		if err := r.Tick(ctx); err != nil {
			logger.FromContext(ctx).Warn(LogMsgExpiryTickFailed, "error", err)
		}
	})
}

func (r *Reconciler) cancelExpiryLocked() {
	if r.expiry != nil {
		r.expiry.Cancel(r.cfg.AccountID)
	}
}

func (r *Reconciler) dispatchPush() {
	maxRetries := uint64(0)
	if r.cfg.PushMaxRetries > 0 {
		maxRetries = uint64(r.cfg.PushMaxRetries)
	}
	r.dispatcher.Enqueue(worker.JobFunc{
		Name: JobPushClaim,
		Fn: func(ctx context.Context) error {
			return r.pushClaim(ctx, maxRetries)
		},
	})
}

func (r *Reconciler) publish(ctx context.Context, events []event.Event) {
	for _, evt := range events {
		if err := r.bus.Publish(ctx, evt); err != nil {
			logger.FromContext(ctx).Warn(LogMsgPublishFailed, "type", evt.Type, "error", err)
		}
	}
}

func (r *Reconciler) now() time.Time {
	return domain.TruncateMillis(r.clock.Now())
}

func recordRemoteError(op string, err error) {
	class := "other"
	switch {
	case errors.Is(err, domain.ErrTransient):
		class = "transient"
	case errors.Is(err, domain.ErrUnauthenticated):
		class = "unauthenticated"
	case errors.Is(err, domain.ErrAccountNotFound):
		class = "not_found"
	case errors.Is(err, domain.ErrClaimRejected):
		class = "rejected"
	}
	metrics.RemoteErrors.WithLabelValues(op, class).Inc()
}
