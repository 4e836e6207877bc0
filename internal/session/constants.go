package session

// Job names used when dispatching work to the pool
const (
	JobPushClaim = "push_claim"
	JobComplete  = "complete_session"
)

// Completion reasons
const (
	reasonExpired = "expired"
	reasonStopped = "stopped"
)

// Balance change sources that are not ledger sources
const (
	sourceSync = "sync"
)

// Log messages
const (
	LogMsgSessionStarted      = "Mining session started"
	LogMsgSessionCompleting   = "Mining session completing"
	LogMsgSessionCredited     = "Mining session credited"
	LogMsgSessionAlreadyPaid  = "Mining session was already credited"
	LogMsgSessionReset        = "Mining session reset"
	LogMsgClaimAcknowledged   = "Session claim acknowledged by remote"
	LogMsgClaimPending        = "Session claim push failed, will replay later"
	LogMsgClaimLost           = "Session claim lost to another device"
	LogMsgConflictAcked       = "Session conflict acknowledged"
	LogMsgSettlingForeign     = "Settling expired session left by another device"
	LogMsgCreditRejected      = "Remote rejected credit, local session discarded"
	LogMsgLightSyncDivergence = "Light sync found divergent remote session"
	LogMsgCacheSaveFailed     = "Failed to save local cache"
	LogMsgCacheCorrupt        = "Local cache unreadable, starting fresh"
	LogMsgBootstrapOffline    = "Remote unreachable during bootstrap, using local cache"
	LogMsgPublishFailed       = "Failed to publish session event"
	LogMsgExpiryTickFailed    = "Expiry check failed"
	LogMsgFollowupSyncFailed  = "Follow-up full sync failed"
	LogMsgBoostRefreshFailed  = "Boost refresh failed, crediting with cached boosts"
)
