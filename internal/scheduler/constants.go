package scheduler

// JobPeriodicSync is the name of the job enqueued on every ticker fire.
const JobPeriodicSync = "periodic_sync"

// Log messages
const (
	LogMsgForegroundSkipped = "Foreground within minimum sync interval, resuming from cache"
	LogMsgForegroundSync    = "Foreground full sync"
	LogMsgPeriodicFailed    = "Periodic sync failed"
)
