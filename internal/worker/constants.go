package worker

// ============================================================================
// Log Messages - Worker Pool
// ============================================================================

// Log messages for pool operations
const (
	LogMsgWorkerJobFailed   = "Worker job failed"
	LogMsgJobDroppedStopped = "Job dropped, pool stopped"
	LogMsgJobQueueFull      = "Job dropped, queue full"
)

// ============================================================================
// Log Messages - Expiry Worker
// ============================================================================

// Log messages for expiry worker operations
const (
	LogMsgExpiryScheduled   = "Session expiry scheduled"
	LogMsgTimerCancelled    = "Cancelled pending timer"
	LogMsgWorkerStopped     = "Worker shutdown complete"
	LogMsgWorkerStopTimeout = "Worker shutdown timed out"
)

// ============================================================================
// Test Configuration
// ============================================================================

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount      = 2
	TestQueueSize        = 10
	TestExpectedJobCount = 2
)
