package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Remote store errors
	ErrMsgTransient         = "remote store temporarily unavailable"
	ErrMsgUnauthenticated   = "not authenticated"
	ErrMsgAccountNotFound   = "account not found"
	ErrMsgClaimRejected     = "session claim rejected by remote"
	ErrMsgConnectionTimeout = "connection timeout"

	// Session errors
	ErrMsgSessionActive        = "a mining session is already active"
	ErrMsgNoActiveSession      = "no active mining session"
	ErrMsgReconcileInProgress  = "reconciliation in progress"
	ErrMsgSessionNotCompleting = "session is not awaiting completion"
	ErrMsgNoConflict           = "no session conflict to acknowledge"

	// Boost errors
	ErrMsgInvalidBoost = "invalid boost entry"

	// Local persistence errors
	ErrMsgCacheCorrupt = "local cache is corrupt"

	// Input errors
	ErrMsgInvalidInput = "invalid input"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Remote store errors
	ErrTransient       = errors.New(ErrMsgTransient)
	ErrUnauthenticated = errors.New(ErrMsgUnauthenticated)
	ErrAccountNotFound = errors.New(ErrMsgAccountNotFound)
	ErrClaimRejected   = errors.New(ErrMsgClaimRejected)

	// Session errors
	ErrSessionActive        = errors.New(ErrMsgSessionActive)
	ErrNoActiveSession      = errors.New(ErrMsgNoActiveSession)
	ErrReconcileInProgress  = errors.New(ErrMsgReconcileInProgress)
	ErrSessionNotCompleting = errors.New(ErrMsgSessionNotCompleting)
	ErrNoConflict           = errors.New(ErrMsgNoConflict)

	// Boost errors
	ErrInvalidBoost = errors.New(ErrMsgInvalidBoost)

	// Local persistence errors
	ErrCacheCorrupt = errors.New(ErrMsgCacheCorrupt)

	// Validation errors
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)
)
