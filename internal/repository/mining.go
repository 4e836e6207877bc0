package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// ClaimResult reports the outcome of an atomic session claim.
type ClaimResult struct {
	// Claimed is true when the caller owns the remote session after the call,
	// including when it already owned the same claim.
	Claimed bool
	// Session is the remote session after the call.
	Session domain.Session
}

// CreditResult reports the outcome of crediting a finished session.
type CreditResult struct {
	// Credited is false when the session had already been credited for the same start time.
	Credited bool
	Balance  decimal.Decimal
	Session  domain.Session
}

// SessionStore is the remote mining sub-record of an account.
type SessionStore interface {
	// ReadSession reads only the session sub-record.
	ReadSession(ctx context.Context, accountID string) (domain.Session, error)

	// ClaimSession atomically writes claim as the active session unless another live
	// claim already holds it. A previous session that expired without being credited
	// also blocks the claim; the caller must complete it first.
	ClaimSession(ctx context.Context, accountID string, claim domain.Session, duration time.Duration) (ClaimResult, error)

	// CreditSession atomically increments the balance by amount and marks the session
	// started at start as completed. Repeated calls for the same start do not credit twice.
	// Returns domain.ErrClaimRejected when the remote session has a different start time.
	CreditSession(ctx context.Context, accountID string, start time.Time, amount decimal.Decimal) (CreditResult, error)

	// ResetSession marks the session started at start inactive. A session with a
	// different start time is left untouched.
	ResetSession(ctx context.Context, accountID string, start time.Time) (domain.Session, error)
}

// AccountStore covers whole-account reads and balance mutations.
type AccountStore interface {
	// ReadAccount reads session, balance and boosts in one call.
	// Returns domain.ErrAccountNotFound when the account does not exist.
	ReadAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// IncrementBalance atomically adds amount and records it under idempotencyKey.
	// A repeated key returns the current balance without adding again.
	IncrementBalance(ctx context.Context, accountID string, amount decimal.Decimal, source, idempotencyKey string) (decimal.Decimal, error)
}

// BoostStore persists boosts.<kind> entries.
type BoostStore interface {
	ReadBoosts(ctx context.Context, accountID string) ([]domain.BoostEntry, error)
	UpsertBoost(ctx context.Context, accountID string, entry domain.BoostEntry) error
	DeleteBoost(ctx context.Context, accountID string, kind domain.BoostKind) error
}

// RemoteStore is the complete remote account service.
type RemoteStore interface {
	SessionStore
	AccountStore
	BoostStore
}

// SessionIdempotencyKey is the ledger key for crediting the session started at start.
func SessionIdempotencyKey(start time.Time) string {
	return "session:" + decimal.NewFromInt(domain.ToMillis(start)).String()
}

// RewardIdempotencyKey is the ledger key for a side-feature reward. Reward keys live
// in their own namespace so no caller-chosen key can shadow a session credit.
func RewardIdempotencyKey(key string) string {
	return "reward:" + key
}
