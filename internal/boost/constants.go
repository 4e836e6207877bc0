package boost

// RemoteCacheSize bounds the number of accounts whose remote boosts are cached.
const RemoteCacheSize = 64

// Log messages
const (
	LogMsgBoostGranted       = "Boost granted"
	LogMsgBoostWithdrawn     = "Boost withdrawn"
	LogMsgBoostsRefreshed    = "Boosts refreshed from remote"
	LogMsgBoostsFromCache    = "Boosts served from cache"
	LogMsgMalformedBoosts    = "Dropped malformed remote boosts"
	LogMsgBoostPublishFailed = "Failed to publish boosts event"
)
