package bootstrap

import "time"

// =============================================================================
// File System Permissions
// =============================================================================

const (
	// DirPermission is the standard permission for creating directories
	DirPermission = 0o755

	// LogFilePermission is the permission for log files
	LogFilePermission = 0o644
)

// =============================================================================
// Logger Configuration
// =============================================================================

const (
	// LogDirName is the log directory created under the cache directory
	LogDirName = "logs"

	// LogFileTimestampFormat is the timestamp format for log filenames (YYYY-MM-DD_HH-MM-SS)
	LogFileTimestampFormat = "2006-01-02_15-04-05"

	// LogFileNamePattern is the format string for log filenames
	LogFileNamePattern = "minersync_%s.log"

	// LogFileExtension is the file extension for log files
	LogFileExtension = ".log"

	// LogFileRetentionCount is the number of log files kept after cleanup
	LogFileRetentionCount = 9

	// ServiceName tags every log line
	ServiceName = "minersync"
)

// Log messages for logger initialization
const (
	LogMsgLoggingInitialized  = "Logging initialized"
	LogMsgStarting            = "Starting MinerSync"
	LogMsgConfigurationLoaded = "Configuration loaded"
	LogMsgFailedCreateLogsDir = "failed to create logs directory"
	LogMsgFailedOpenLogFile   = "failed to open log file"
	LogMsgFailedDeleteOldLog  = "Failed to delete old log file"
)

// =============================================================================
// Event System Configuration
// =============================================================================

const (
	// EventDefaultMaxRetries is the number of background retries for a failed publish
	EventDefaultMaxRetries = 3

	// EventDefaultRetryDelay is the base delay of the exponential publish backoff
	EventDefaultRetryDelay = 200 * time.Millisecond
)

// Log messages for event system initialization
const (
	LogMsgEventSystemInitialized    = "Event system initialized"
	LogMsgEventHandlersRegistered   = "Event handlers registered"
	LogMsgFailedCreateDeadLetterDir = "failed to create dead-letter directory"
	LogMsgFailedOpenDeadLetter      = "failed to open dead-letter file"
)

// =============================================================================
// Remote Store
// =============================================================================

const (
	LogMsgRemoteBackend       = "Remote store initialized"
	LogMsgMemoryAccountSeeded = "In-memory remote store seeded with account"
	ErrMsgFailedConnectDB     = "failed to connect to remote database"
	ErrMsgFailedMigrate       = "failed to apply migrations"
	ErrMsgFailedSeedAccount   = "failed to ensure account row"
	ErrMsgUnknownBackend      = "unknown remote backend"
)

// =============================================================================
// Application Wiring
// =============================================================================

const (
	// JobQueueSize bounds the shared worker pool queue
	JobQueueSize = 64

	// DBConnectRetries covers a database that is still starting alongside the daemon
	DBConnectRetries = 5

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout = 10 * time.Second

	ErrMsgFailedDeviceID   = "failed to load device identity"
	ErrMsgFailedCacheStore = "failed to open local cache"
	ErrMsgFailedBootstrap  = "failed to bootstrap session"

	LogMsgDeviceIdentity       = "Device identity loaded"
	LogMsgSessionRestored      = "Session bootstrapped"
	LogMsgServerFailed         = "Server failed"
	LogMsgForegroundSyncFailed = "Initial foreground sync failed"
)

// =============================================================================
// Shutdown Messages
// =============================================================================

const (
	LogMsgShuttingDownServer         = "Shutting down server..."
	LogMsgShuttingDownEventPublisher = "Shutting down event publisher..."
	LogMsgServerStopped              = "Server stopped"
	LogMsgServerForcedShutdown       = "Server forced to shutdown"
	LogMsgBackgroundFlushFailed      = "Background flush failed"
	LogMsgExpiryWorkerShutdownFailed = "Expiry worker shutdown failed"
	LogMsgDeadLetterCloseFailed      = "Dead-letter file close failed"
)
