package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"
	ErrMsgMissingURLParam       = "Missing %s path parameter"
	ErrMsgInvalidAmount         = "amount must be a positive decimal"
	ErrMsgInvalidMultiplier     = "multiplier must be a decimal of at least 1"
)

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError   = "Something went wrong"
	ErrMsgUnknownError         = "Unknown error"
	ErrMsgAuthFailedError      = "Authentication failed. Please check your API key."
	ErrMsgUnavailableError     = "Remote store is temporarily unavailable. Please try again later."
	ErrMsgAccountNotFoundError = "Account not found"
	ErrMsgSessionActiveError   = "A mining session is already running"
	ErrMsgNoActiveSessionError = "No mining session is running"
	ErrMsgReconcilingError     = "Session is being reconciled. Please try again shortly."
	ErrMsgNotCompletingError   = "Session is not completing"
	ErrMsgNoConflictError      = "There is no session conflict to acknowledge"
	ErrMsgInvalidBoostError    = "Invalid boost"
	ErrMsgInvalidInputError    = "Invalid request. Please check your inputs."
	ErrMsgClaimRejectedError   = "Session was replaced on another device"
)

// Success messages for API responses
const (
	MsgSessionStarted       = "Mining session started"
	MsgSessionStopped       = "Mining session stopped"
	MsgConflictAcknowledged = "Session conflict acknowledged"
	MsgSyncCompleted        = "Sync completed"
	MsgBoostGranted         = "Boost granted"
	MsgBoostWithdrawn       = "Boost withdrawn"
	MsgRewardCredited       = "Reward credited"
	MsgForeground           = "Foreground sync completed"
	MsgBackground           = "Background flush completed"
)
