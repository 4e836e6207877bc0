package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeviceID identifies one installation of the client. It is a persisted UUID.
type DeviceID string

// SessionState is the reconciler's view of the local session.
type SessionState string

const (
	StateIdle        SessionState = "idle"
	StateActive      SessionState = "active"
	StateReconciling SessionState = "reconciling"
	StateCompleting  SessionState = "completing"
	StateConflict    SessionState = "conflict"
)

// SessionOrigin records whether an active session was started here or adopted from the remote.
type SessionOrigin string

const (
	OriginNone   SessionOrigin = ""
	OriginLocal  SessionOrigin = "local"
	OriginRemote SessionOrigin = "remote"
)

// Session is the per-account mining record. Times are carried at millisecond precision,
// matching the epoch-millis representation used remotely.
type Session struct {
	Active           bool      `json:"active"`
	StartTime        time.Time `json:"start_time"`
	OwningDevice     DeviceID  `json:"owning_device"`
	LastServerUpdate time.Time `json:"last_server_update"`
	// CompletedAt is set when the session identified by StartTime has been credited.
	CompletedAt time.Time `json:"completed_at"`
}

// ExpiresAt returns the instant the session stops accruing.
func (s Session) ExpiresAt(duration time.Duration) time.Time {
	return s.StartTime.Add(duration)
}

// Expired reports whether an active session has run its full duration at now.
func (s Session) Expired(now time.Time, duration time.Duration) bool {
	return s.Active && !now.Before(s.ExpiresAt(duration))
}

// SameClaim reports whether both records describe the same claim: same owner, same start.
func (s Session) SameClaim(other Session) bool {
	return s.OwningDevice == other.OwningDevice && ToMillis(s.StartTime) == ToMillis(other.StartTime)
}

// Credited reports whether the session identified by its StartTime has already been paid out.
func (s Session) Credited() bool {
	return !s.CompletedAt.IsZero()
}

// Valid enforces that an active session always carries a start time.
func (s Session) Valid() bool {
	return !s.Active || !s.StartTime.IsZero()
}

// Account is the full per-account remote record returned by a full read.
type Account struct {
	ID      string
	Session Session
	Balance decimal.Decimal
	Boosts  []BoostEntry
}

// SessionStatus is the read model served to the UI.
type SessionStatus struct {
	State           SessionState    `json:"state"`
	Origin          SessionOrigin   `json:"origin,omitempty"`
	Active          bool            `json:"active"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	OwningDevice    DeviceID        `json:"owning_device,omitempty"`
	RemainingMillis int64           `json:"remaining_millis"`
	Accrued         decimal.Decimal `json:"accrued"`
	RatePerSecond   decimal.Decimal `json:"rate_per_second"`
	Balance         decimal.Decimal `json:"balance"`
	PendingPush     bool            `json:"pending_push"`
	Divergent       bool            `json:"divergent"`
}

// ToMillis converts t to epoch milliseconds; the zero time maps to 0.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to UTC time; 0 maps to the zero time.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// TruncateMillis drops sub-millisecond precision so local and remote copies compare equal.
func TruncateMillis(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return FromMillis(t.UnixMilli())
}
