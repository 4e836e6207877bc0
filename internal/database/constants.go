package database

import "time"

// Database Connection Pool Constants
const (
	// DefaultMinConnections is the minimum number of connections to maintain in the pool
	DefaultMinConnections = 2

	// PingTimeout bounds each readiness ping while opening the pool
	PingTimeout = 3 * time.Second

	// ConnectRetryDelay is the first backoff step between pings
	ConnectRetryDelay = 250 * time.Millisecond

	// MigrationsDir is the directory inside the embedded filesystem holding goose migrations
	MigrationsDir = "migrations"
)

// Error Messages - Database Operations
const (
	ErrMsgFailedToParseConnString = "failed to parse connection string"
	ErrMsgFailedToCreatePool      = "failed to create connection pool"
	ErrMsgFailedToPingDatabase    = "failed to ping database"
	ErrMsgFailedToSetDialect      = "failed to set goose dialect"
	ErrMsgFailedToMigrate         = "failed to run migrations"
	ErrMsgUnknownMigrateCommand   = "unknown migrate command"
)

// Log Messages
const (
	LogMsgSuccessfullyConnectedToDatabase = "Successfully connected to the database"
	LogMsgMigrationsApplied               = "Database migrations applied"
	LogMsgPingFailed                      = "Database ping failed"
)
