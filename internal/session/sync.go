package session

import (
	"context"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// FullSync reads the whole account once and reconciles session, balance and boosts.
// Start is rejected while it runs. A completion in progress is left to Tick.
func (r *Reconciler) FullSync(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case domain.StateCompleting:
		r.mu.Unlock()
		return nil
	case domain.StateReconciling:
		r.mu.Unlock()
		return domain.ErrReconcileInProgress
	}
	prevState, prevOrigin := r.state, r.origin
	r.state = domain.StateReconciling
	r.generation++
	gen := r.generation
	balanceVersion := r.balanceVersion
	metrics.SessionTransitions.WithLabelValues(string(domain.StateReconciling)).Inc()
	r.mu.Unlock()

	metrics.RemoteReads.WithLabelValues(metrics.ReadKindAccount).Inc()
	acct, err := r.remote.ReadAccount(ctx, r.cfg.AccountID)
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("read_account", err)
		r.mu.Lock()
		if r.generation == gen {
			r.state, r.origin = prevState, prevOrigin
			r.generation++
		}
		r.mu.Unlock()
		return err
	}

	now := r.now()
	r.boosts.Observe(acct.Boosts, now)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return nil
	}
	r.lastSync = now
	r.snapshot.FetchedAt = now
	r.divergent = false

	var events []event.Event
	if r.balanceVersion == balanceVersion {
		events = append(events, r.setBalanceLocked(acct.Balance, sourceSync)...)
	}

	remote := acct.Session
	local := r.snapshot.Session
	duration := r.engine.SessionDuration()
	ownPending := r.snapshot.PendingPush && prevState == domain.StateActive && prevOrigin == domain.OriginLocal

	redispatch := false
	completeAfter := false
	switch {
	case ownPending && (!remote.Active || remote.SameClaim(local) || !remote.LastServerUpdate.After(r.snapshot.LocalWriteAt)):
		// The local optimistic write is newer than anything the remote knows.
		r.transitionLocked(domain.StateActive, domain.OriginLocal)
		if remote.Active && remote.SameClaim(local) {
			r.snapshot.PendingPush = false
			r.snapshot.Session.LastServerUpdate = remote.LastServerUpdate
		} else {
			redispatch = true
		}
	case remote.Active && remote.Expired(now, duration):
		r.snapshot.Session = remote
		r.snapshot.PendingPush = false
		r.origin = r.originOf(remote)
		events = append(events, r.beginCompletionLocked(ctx, r.engine.ExpiresAt(remote.StartTime), reasonExpired)...)
		completeAfter = true
	case remote.Active && local.Active && !remote.SameClaim(local) && prevState != domain.StateIdle:
		events = append(events, r.enterConflictLocked(ctx, remote, local.StartTime)...)
	case remote.Active:
		r.snapshot.Session = remote
		r.snapshot.PendingPush = false
		if prevState == domain.StateConflict && remote.SameClaim(local) {
			r.transitionLocked(domain.StateConflict, domain.OriginRemote)
		} else {
			r.transitionLocked(domain.StateActive, r.originOf(remote))
		}
		r.scheduleExpiryLocked()
	default:
		r.snapshot.Session.LastServerUpdate = remote.LastServerUpdate
		r.snapshot.Session.CompletedAt = remote.CompletedAt
		r.transitionLocked(domain.StateIdle, domain.OriginNone)
	}
	r.saveLocked(ctx)
	if !completeAfter {
		events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(now)))
	}
	r.mu.Unlock()

	r.publish(ctx, events)
	if redispatch {
		r.dispatchPush()
	}
	if completeAfter {
		return r.complete(ctx)
	}
	return r.Tick(ctx)
}

// LightSync reads only the remote session sub-record while a session is running.
// It settles ownership acknowledgements and remote expiry; any other divergence is
// flagged for the next full sync instead of being resolved from a partial read.
func (r *Reconciler) LightSync(ctx context.Context) error {
	r.mu.Lock()
	if r.state != domain.StateActive && r.state != domain.StateConflict {
		r.mu.Unlock()
		return nil
	}
	gen := r.generation
	r.mu.Unlock()

	metrics.RemoteReads.WithLabelValues(metrics.ReadKindSession).Inc()
	remote, err := r.remote.ReadSession(ctx, r.cfg.AccountID)
	if err != nil {
		err = repository.Classify(err)
		recordRemoteError("read_session", err)
		return err
	}

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return nil
	}
	local := r.snapshot.Session
	now := r.now()
	var events []event.Event
	completeAfter := false
	switch {
	case remote.Active && remote.SameClaim(local):
		r.snapshot.Session.LastServerUpdate = remote.LastServerUpdate
		if r.snapshot.PendingPush {
			r.snapshot.PendingPush = false
			r.saveLocked(ctx)
			events = append(events, event.NewSessionStateChangedEvent(r.statusLocked(now)))
		}
		if remote.Expired(now, r.engine.SessionDuration()) {
			events = append(events, r.beginCompletionLocked(ctx, r.engine.ExpiresAt(remote.StartTime), reasonExpired)...)
			completeAfter = true
		}
	case !remote.Active && r.snapshot.PendingPush:
		// Our claim has not landed yet.
	default:
		if !r.divergent {
			logger.FromContext(ctx).Info(LogMsgLightSyncDivergence,
				"remote_active", remote.Active, "remote_device", remote.OwningDevice, "remote_start", remote.StartTime)
		}
		r.divergent = true
	}
	r.mu.Unlock()

	r.publish(ctx, events)
	if completeAfter {
		return r.complete(ctx)
	}
	return nil
}
