package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedSnapshot is the last known account state persisted on the device.
type CachedSnapshot struct {
	AccountID string
	Session   Session
	Balance   decimal.Decimal
	Boosts    []BoostEntry
	// FetchedAt is when the session or balance was last read from the remote.
	FetchedAt time.Time
	TTL       time.Duration
	// LocalWriteAt is the issue time of the last optimistic local change.
	LocalWriteAt time.Time
	// PendingPush marks optimistic state the remote has not acknowledged yet.
	PendingPush bool
	UpdatedAt   time.Time
}

// Stale reports whether the remote portion of the snapshot is older than its TTL.
func (c CachedSnapshot) Stale(now time.Time) bool {
	return c.FetchedAt.IsZero() || now.Sub(c.FetchedAt) > c.TTL
}

// Balance change sources recorded in the ledger
const (
	SourceMiningSession = "mining_session"
	SourceReferral      = "referral"
	SourceStreak        = "streak"
	SourceEvent         = "event"
)
