package boost

import (
	"context"
	"fmt"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/logger"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/repository"
)

// Service is the entry point side features use to contribute multipliers.
// Providers never touch the balance; they only grant or withdraw boosts.
type Service interface {
	// Grant validates entry, persists it remotely and registers it locally.
	Grant(ctx context.Context, entry domain.BoostEntry) error
	// Withdraw removes the boost of kind both remotely and locally.
	Withdraw(ctx context.Context, kind domain.BoostKind) error
	// Refresh reloads remote boosts once the registry is older than the boost TTL,
	// or unconditionally when force is set.
	Refresh(ctx context.Context, force bool) error
	// Observe loads boosts that arrived with a full account read.
	Observe(entries []domain.BoostEntry, at time.Time)
	// Active lists the boosts live now.
	Active() []domain.BoostEntry
}

type service struct {
	registry  *Registry
	store     repository.BoostStore
	bus       event.Bus
	clock     domain.Clock
	cache     *remoteCache
	accountID string
	ttl       time.Duration
}

// NewService creates a boost service for one account.
func NewService(
	registry *Registry,
	store repository.BoostStore,
	bus event.Bus,
	clock domain.Clock,
	accountID string,
	ttl time.Duration,
) Service {
	return &service{
		registry:  registry,
		store:     store,
		bus:       bus,
		clock:     clock,
		cache:     newRemoteCache(RemoteCacheSize, ttl),
		accountID: accountID,
		ttl:       ttl,
	}
}

func (s *service) Grant(ctx context.Context, entry domain.BoostEntry) error {
	if err := Validate(entry); err != nil {
		return err
	}

	if err := s.store.UpsertBoost(ctx, s.accountID, entry); err != nil {
		return fmt.Errorf("failed to persist boost %s: %w", entry.Kind, repository.Classify(err))
	}
	s.cache.Invalidate(s.accountID)

	if err := s.registry.Register(entry); err != nil {
		return err
	}

	metrics.BoostGrants.WithLabelValues(string(entry.Kind)).Inc()
	logger.FromContext(ctx).Info(LogMsgBoostGranted,
		"kind", entry.Kind,
		"multiplier", entry.Multiplier.String(),
		"source", entry.Source)
	s.publish(ctx)
	return nil
}

func (s *service) Withdraw(ctx context.Context, kind domain.BoostKind) error {
	if err := s.store.DeleteBoost(ctx, s.accountID, kind); err != nil {
		return fmt.Errorf("failed to delete boost %s: %w", kind, repository.Classify(err))
	}
	s.cache.Invalidate(s.accountID)
	s.registry.Revoke(kind)

	logger.FromContext(ctx).Info(LogMsgBoostWithdrawn, "kind", kind)
	s.publish(ctx)
	return nil
}

func (s *service) Refresh(ctx context.Context, force bool) error {
	now := s.clock.Now()
	if !force && !s.registry.Stale(now, s.ttl) {
		return nil
	}

	if !force {
		if entries, at, ok := s.cache.Get(s.accountID, now); ok {
			logger.FromContext(ctx).Debug(LogMsgBoostsFromCache, "count", len(entries))
			s.load(ctx, entries, at)
			return nil
		}
	}

	metrics.RemoteReads.WithLabelValues(metrics.ReadKindBoosts).Inc()
	entries, err := s.store.ReadBoosts(ctx, s.accountID)
	if err != nil {
		return fmt.Errorf("failed to read boosts: %w", repository.Classify(err))
	}
	s.cache.Set(s.accountID, entries, now)
	s.load(ctx, entries, now)

	logger.FromContext(ctx).Debug(LogMsgBoostsRefreshed, "count", len(entries))
	return nil
}

func (s *service) Observe(entries []domain.BoostEntry, at time.Time) {
	s.cache.Set(s.accountID, entries, at)
	s.load(context.Background(), entries, at)
}

func (s *service) Active() []domain.BoostEntry {
	return s.registry.Active(s.clock.Now())
}

func (s *service) load(ctx context.Context, entries []domain.BoostEntry, at time.Time) {
	if skipped := s.registry.Replace(entries, at); skipped > 0 {
		logger.FromContext(ctx).Warn(LogMsgMalformedBoosts, "skipped", skipped)
	}
	s.publish(ctx)
}

func (s *service) publish(ctx context.Context) {
	if s.bus == nil {
		return
	}
	now := s.clock.Now()
	evt := event.NewBoostsChangedEvent(s.registry.EffectiveMultiplier(now), len(s.registry.Active(now)))
	if err := s.bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Warn(LogMsgBoostPublishFailed, "error", err)
	}
}
