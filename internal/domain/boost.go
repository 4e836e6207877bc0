package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BoostKind names the origin of a rate multiplier. One entry per kind is held at a time.
type BoostKind string

const (
	BoostAdWatch     BoostKind = "ad_watch"
	BoostReferral    BoostKind = "referral"
	BoostStreak      BoostKind = "streak"
	BoostEventWindow BoostKind = "event_window"
	BoostPermanent   BoostKind = "permanent"
)

// BoostKinds lists every known kind in a stable order.
var BoostKinds = []BoostKind{BoostAdWatch, BoostReferral, BoostStreak, BoostEventWindow, BoostPermanent}

// BoostEntry is one multiplier contributed by a side feature. A multiplier of exactly 1
// disables the entry without removing it.
type BoostEntry struct {
	Kind       BoostKind       `json:"kind" validate:"required,oneof=ad_watch referral streak event_window permanent"`
	Multiplier decimal.Decimal `json:"multiplier"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Permanent  bool            `json:"permanent"`
	Source     string          `json:"source" validate:"required,max=100"`
}

// LiveAt reports whether the entry still applies at now. Expired entries are treated as
// absent without being deleted.
func (b BoostEntry) LiveAt(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
