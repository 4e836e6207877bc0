// Package rate computes accrual from a base rate and the composed boost multiplier.
// Everything here is pure: no I/O and no mutation of the inputs.
package rate

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccrualPlaces is the number of decimal places every accrued amount is rounded to.
const AccrualPlaces = 8

// MultiplierSource supplies the composed boost multiplier at an instant.
type MultiplierSource interface {
	EffectiveMultiplier(now time.Time) decimal.Decimal
}

// Engine turns elapsed session time into credits.
type Engine struct {
	baseRate decimal.Decimal
	duration time.Duration
	boosts   MultiplierSource
}

// Projection is a point-in-time view of an active session for display.
type Projection struct {
	RatePerSecond decimal.Decimal
	Accrued       decimal.Decimal
	Remaining     time.Duration
}

// NewEngine creates an engine accruing baseRate credits per second for at most duration.
func NewEngine(baseRate decimal.Decimal, duration time.Duration, boosts MultiplierSource) *Engine {
	return &Engine{baseRate: baseRate, duration: duration, boosts: boosts}
}

// SessionDuration is the fixed accrual window.
func (e *Engine) SessionDuration() time.Duration {
	return e.duration
}

// EffectiveRatePerSecond is baseRate times the multiplier live at now.
func (e *Engine) EffectiveRatePerSecond(now time.Time) decimal.Decimal {
	return e.baseRate.Mul(e.boosts.EffectiveMultiplier(now))
}

// Accrued integrates the effective rate at now over elapsed, capped at the session
// duration. Negative elapsed counts as zero. Time is measured in whole milliseconds.
func (e *Engine) Accrued(elapsed time.Duration, now time.Time) decimal.Decimal {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > e.duration {
		elapsed = e.duration
	}
	seconds := decimal.New(elapsed.Milliseconds(), -3)
	return e.EffectiveRatePerSecond(now).Mul(seconds).Round(AccrualPlaces)
}

// ExpiresAt is when a session started at start stops accruing.
func (e *Engine) ExpiresAt(start time.Time) time.Time {
	return start.Add(e.duration)
}

// Remaining is the time left in a session started at start, never negative.
func (e *Engine) Remaining(start, now time.Time) time.Duration {
	left := e.ExpiresAt(start).Sub(now)
	if left < 0 {
		return 0
	}
	if left > e.duration {
		return e.duration
	}
	return left
}

// Project evaluates rate, accrual and remaining time for a session started at start.
func (e *Engine) Project(start, now time.Time) Projection {
	return Projection{
		RatePerSecond: e.EffectiveRatePerSecond(now),
		Accrued:       e.Accrued(now.Sub(start), now),
		Remaining:     e.Remaining(start, now),
	}
}
