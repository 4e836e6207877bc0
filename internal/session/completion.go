package session

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// Tick detects expiry and drives a pending completion forward. It is safe to call
// at any time; it does nothing while a full sync is running.
func (r *Reconciler) Tick(ctx context.Context) error {
	if r.dueForCompletion() {
		r.refreshBeforeCredit(ctx)
	}

	r.mu.Lock()
	now := r.now()
	var events []event.Event
	switch r.state {
	case domain.StateActive, domain.StateConflict:
		s := r.snapshot.Session
		if !s.Expired(now, r.engine.SessionDuration()) {
			r.mu.Unlock()
			return nil
		}
		events = r.beginCompletionLocked(ctx, r.engine.ExpiresAt(s.StartTime), reasonExpired)
	case domain.StateCompleting:
	default:
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	r.publish(ctx, events)
	return r.complete(ctx)
}

// Complete credits the finished session and resets it remotely. It may be retried
// after a transient failure; the remote credit is idempotent per start time.
func (r *Reconciler) Complete(ctx context.Context) error {
	if r.State() != domain.StateCompleting {
		return domain.ErrSessionNotCompleting
	}
	return r.complete(ctx)
}

func (r *Reconciler) dueForCompletion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case domain.StateActive, domain.StateConflict:
		return r.snapshot.Session.Expired(r.now(), r.engine.SessionDuration())
	}
	return false
}

// refreshBeforeCredit reloads boosts past their TTL so the amount frozen next uses
// the current multiplier. A failed read leaves the cached boosts in place.
func (r *Reconciler) refreshBeforeCredit(ctx context.Context) {
	if err := r.boosts.Refresh(ctx, false); err != nil {
		logger.FromContext(ctx).Warn(LogMsgBoostRefreshFailed, "error", err)
	}
}

// beginCompletionLocked freezes the accrual at end and moves to Completing. The
// amount is computed once so retries credit the same value.
func (r *Reconciler) beginCompletionLocked(ctx context.Context, end time.Time, reason string) []event.Event {
	start := r.snapshot.Session.StartTime
	r.completion = &completion{
		start:  start,
		end:    end,
		amount: r.engine.Accrued(end.Sub(start), end),
		reason: reason,
	}
	r.state = domain.StateCompleting
	r.generation++
	metrics.SessionTransitions.WithLabelValues(string(domain.StateCompleting)).Inc()
	r.saveLocked(ctx)

	logger.FromContext(ctx).Info(LogMsgSessionCompleting,
		"start", start, "end", end, "amount", r.completion.amount.String(), "reason", reason)
	return []event.Event{event.NewSessionStateChangedEvent(r.statusLocked(r.now()))}
}

func (r *Reconciler) complete(ctx context.Context) error {
	r.completing.Lock()
	defer r.completing.Unlock()

	log := logger.FromContext(ctx)

	r.mu.Lock()
	if r.state != domain.StateCompleting || r.completion == nil {
		r.mu.Unlock()
		return nil
	}
	c := *r.completion
	gen := r.generation
	pending := r.snapshot.PendingPush && r.origin == domain.OriginLocal
	local := r.snapshot.Session
	r.mu.Unlock()

	if pending {
		res, err := r.claim(ctx, local)
		if err != nil {
			return err
		}
		r.mu.Lock()
		if r.generation != gen {
			r.mu.Unlock()
			return nil
		}
		if !res.Claimed {
			events := r.enterConflictLocked(ctx, res.Session, local.StartTime)
			r.mu.Unlock()
			r.publish(ctx, events)
			return nil
		}
		r.snapshot.PendingPush = false
		r.snapshot.Session.LastServerUpdate = res.Session.LastServerUpdate
		r.saveLocked(ctx)
		r.mu.Unlock()
	}

	metrics.RemoteWrites.WithLabelValues("credit_session").Inc()
	credit, err := r.remote.CreditSession(ctx, r.cfg.AccountID, c.start, c.amount)
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("credit_session", err)
		if !errors.Is(err, domain.ErrClaimRejected) {
			return err
		}

		log.Warn(LogMsgCreditRejected, "start", c.start, "error", err)
		r.mu.Lock()
		var events []event.Event
		if r.generation == gen {
			r.transitionLocked(domain.StateIdle, domain.OriginNone)
			r.saveLocked(ctx)
			events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(r.now())))
		}
		r.mu.Unlock()
		r.publish(ctx, events)

		if err := r.FullSync(ctx); err != nil {
			log.Warn(LogMsgFollowupSyncFailed, "error", err)
		}
		return nil
	}

	if credit.Credited {
		metrics.SessionsCredited.Inc()
		metrics.TokensCredited.Add(c.amount.InexactFloat64())
		log.Info(LogMsgSessionCredited, "start", c.start, "amount", c.amount.String(), "balance", credit.Balance.String())
	} else {
		log.Info(LogMsgSessionAlreadyPaid, "start", c.start)
	}

	r.mu.Lock()
	var events []event.Event
	if r.generation == gen {
		events = r.setBalanceLocked(credit.Balance, domain.SourceMiningSession)
		r.snapshot.Session.CompletedAt = credit.Session.CompletedAt
		r.saveLocked(ctx)
	}
	r.mu.Unlock()
	r.publish(ctx, events)

	metrics.RemoteWrites.WithLabelValues("reset_session").Inc()
	remote, err := r.remote.ResetSession(ctx, r.cfg.AccountID, c.start)
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("reset_session", err)
		return err
	}

	r.mu.Lock()
	events = nil
	if r.generation == gen {
		r.adoptAfterResetLocked(ctx, remote, c.start)
		events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(r.now())))
	}
	r.mu.Unlock()

	log.Info(LogMsgSessionReset, "start", c.start)
	r.publish(ctx, events)
	return nil
}

// adoptAfterResetLocked settles local state once the remote reset returned. Another
// device may already hold a fresh session, which is adopted.
func (r *Reconciler) adoptAfterResetLocked(ctx context.Context, remote domain.Session, start time.Time) {
	r.completion = nil
	if remote.Active && domain.ToMillis(remote.StartTime) != domain.ToMillis(start) {
		r.snapshot.Session = remote
		r.snapshot.PendingPush = false
		r.transitionLocked(domain.StateActive, r.originOf(remote))
		r.scheduleExpiryLocked()
	} else {
		r.transitionLocked(domain.StateIdle, domain.OriginNone)
		r.snapshot.Session.LastServerUpdate = remote.LastServerUpdate
		r.snapshot.Session.CompletedAt = remote.CompletedAt
	}
	r.saveLocked(ctx)
}

// enterConflictLocked replaces the local session with the remote one that won the claim.
func (r *Reconciler) enterConflictLocked(ctx context.Context, remote domain.Session, localStart time.Time) []event.Event {
	r.snapshot.Session = remote
	r.snapshot.PendingPush = false
	r.completion = nil
	r.transitionLocked(domain.StateConflict, domain.OriginRemote)
	r.scheduleExpiryLocked()
	r.saveLocked(ctx)
	metrics.SessionConflicts.Inc()

	logger.FromContext(ctx).Warn(LogMsgClaimLost,
		"remote_device", remote.OwningDevice, "remote_start", remote.StartTime, "local_start", localStart)
	return []event.Event{
		event.NewSessionConflictEvent(remote, localStart),
		event.NewSessionStateChangedEvent(r.statusLocked(r.now())),
	}
}

// pushClaim writes the pending local claim remotely, retrying transient failures
// with exponential backoff. A claim that still fails stays pending for the next
// foreground, background or full sync.
func (r *Reconciler) pushClaim(ctx context.Context, maxRetries uint64) error {
	r.mu.Lock()
	if !r.pushPendingLocked() {
		r.mu.Unlock()
		return nil
	}
	local := r.snapshot.Session
	gen := r.generation
	r.mu.Unlock()

	var res repository.ClaimResult
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(r.cfg.PushRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		res, err = r.claim(ctx, local)
		if err != nil && repository.IsTransient(err) {
			metrics.PushRetries.Inc()
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		logger.FromContext(ctx).Warn(LogMsgClaimPending, "start", local.StartTime, "error", err)
		return err
	}

	r.applyClaim(ctx, gen, local, res)
	return nil
}

// applyClaim folds a claim result back into local state unless the session changed meanwhile.
func (r *Reconciler) applyClaim(ctx context.Context, gen uint64, local domain.Session, res repository.ClaimResult) {
	r.mu.Lock()
	if r.generation != gen || r.state != domain.StateActive || !r.snapshot.Session.SameClaim(local) {
		r.mu.Unlock()
		return
	}

	var events []event.Event
	if res.Claimed {
		r.snapshot.PendingPush = false
		r.snapshot.Session.LastServerUpdate = res.Session.LastServerUpdate
		r.saveLocked(ctx)
		logger.FromContext(ctx).Debug(LogMsgClaimAcknowledged, "start", local.StartTime)
		events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(r.now())))
	} else {
		events = r.enterConflictLocked(ctx, res.Session, local.StartTime)
	}
	r.mu.Unlock()
	r.publish(ctx, events)
}

// claim performs one remote claim. A remote session that expired without being
// credited blocks every new claim, so it is settled on behalf of its owner and the
// claim is tried once more.
func (r *Reconciler) claim(ctx context.Context, local domain.Session) (repository.ClaimResult, error) {
	duration := r.engine.SessionDuration()
	for attempt := 0; ; attempt++ {
		metrics.RemoteWrites.WithLabelValues("claim_session").Inc()
		res, err := r.remote.ClaimSession(ctx, r.cfg.AccountID, local, duration)
		if err != nil {
			err = repository.Classify(err)
			recordRemoteError("claim_session", err)
			return repository.ClaimResult{}, err
		}
		remote := res.Session
		if res.Claimed || attempt > 0 || !remote.Expired(r.now(), duration) || remote.Credited() {
			return res, nil
		}
		if err := r.settle(ctx, remote); err != nil {
			return repository.ClaimResult{}, err
		}
	}
}

// settle credits and resets an expired remote session this device did not complete.
func (r *Reconciler) settle(ctx context.Context, remote domain.Session) error {
	end := r.engine.ExpiresAt(remote.StartTime)
	amount := r.engine.Accrued(end.Sub(remote.StartTime), end)
	logger.FromContext(ctx).Info(LogMsgSettlingForeign,
		"remote_device", remote.OwningDevice, "start", remote.StartTime, "amount", amount.String())

	metrics.RemoteWrites.WithLabelValues("credit_session").Inc()
	credit, err := r.remote.CreditSession(ctx, r.cfg.AccountID, remote.StartTime, amount)
	paid := err == nil
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("credit_session", err)
		if !errors.Is(err, domain.ErrClaimRejected) {
			return err
		}
	} else if credit.Credited {
		metrics.SessionsCredited.Inc()
		metrics.TokensCredited.Add(amount.InexactFloat64())
	}

	metrics.RemoteWrites.WithLabelValues("reset_session").Inc()
	if _, err := r.remote.ResetSession(ctx, r.cfg.AccountID, remote.StartTime); err != nil {
		err = repository.Classify(err)
		recordRemoteError("reset_session", err)
		return err
	}

	if paid {
		r.mu.Lock()
		events := r.setBalanceLocked(credit.Balance, domain.SourceMiningSession)
		r.saveLocked(ctx)
		r.mu.Unlock()
		r.publish(ctx, events)
	}
	return nil
}
