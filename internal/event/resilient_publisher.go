package event

import (
	"context"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// ResilientConfig configures the ResilientPublisher
type ResilientConfig struct {
	MaxRetries uint64
	RetryDelay time.Duration
}

// DeadLetterSink records events that exhausted their retries.
type DeadLetterSink interface {
	Write(event Event, attempts int, at time.Time, lastError error) error
}

// ResilientPublisher wraps a Bus so a failing subscriber does not fail the publisher.
// Failed events are retried in the background and dead-lettered after the last attempt.
// Every subscriber of the inner bus sees a retried event again.
type ResilientPublisher struct {
	inner      Bus
	config     ResilientConfig
	deadLetter DeadLetterSink
	clock      domain.Clock
	wg         sync.WaitGroup
}

// NewResilientPublisher creates a new ResilientPublisher. deadLetter may be nil.
func NewResilientPublisher(inner Bus, config ResilientConfig, deadLetter DeadLetterSink, clock domain.Clock) *ResilientPublisher {
	return &ResilientPublisher{
		inner:      inner,
		config:     config,
		deadLetter: deadLetter,
		clock:      clock,
	}
}

// Publish delivers event synchronously once. On failure it returns nil and retries in
// the background.
func (p *ResilientPublisher) Publish(ctx context.Context, event Event) error {
	err := p.inner.Publish(ctx, event)
	if err == nil {
		return nil
	}

	logger.FromContext(ctx).Warn(LogMsgPublishFailed,
		"event_type", event.Type,
		"error", err,
		"retries", p.config.MaxRetries)

	p.wg.Add(1)
	go p.retryLoop(context.WithoutCancel(ctx), event)
	return nil
}

func (p *ResilientPublisher) retryLoop(ctx context.Context, event Event) {
	defer p.wg.Done()

	attempts := 1
	var lastErr error
	backoff := retry.WithMaxRetries(p.config.MaxRetries, retry.NewExponential(p.config.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if lastErr = p.inner.Publish(ctx, event); lastErr != nil {
			return retry.RetryableError(lastErr)
		}
		return nil
	})

	log := logger.FromContext(ctx)
	if err == nil {
		log.Info(LogMsgPublishRecovered, "event_type", event.Type, "attempts", attempts)
		return
	}

	log.Error(LogMsgDeadLettered, "event_type", event.Type, "attempts", attempts, "error", lastErr)
	if p.deadLetter == nil {
		return
	}
	if werr := p.deadLetter.Write(event, attempts, p.clock.Now(), lastErr); werr != nil {
		log.Error(LogMsgDeadLetterFailed, "error", werr)
	}
}

// Subscribe delegates to the inner bus
func (p *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	p.inner.Subscribe(eventType, handler)
}

// Wait blocks until every background retry has finished.
func (p *ResilientPublisher) Wait() {
	p.wg.Wait()
}
