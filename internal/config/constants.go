package config

import "time"

// Remote backends selectable with REMOTE_BACKEND
const (
	RemoteBackendPostgres = "postgres"
	RemoteBackendMemory   = "memory"
)

// Defaults applied when the corresponding variable is unset or unparsable
const (
	DefaultPort                 = 8080
	DefaultBaseRate             = "0.00125"
	DefaultSessionDuration      = 24 * time.Hour
	DefaultMinSyncInterval      = 5 * time.Minute
	DefaultPeriodicSyncInterval = 60 * time.Second
	DefaultCacheTTL             = 5 * time.Minute
	DefaultBoostTTL             = 60 * time.Second
	DefaultPushMaxRetries       = 5
	DefaultPushRetryDelay       = 500 * time.Millisecond
	DefaultWorkerCount          = 2
	DefaultDBMaxConns           = 20
	DefaultDBMaxConnIdleTime    = 5 * time.Minute
	DefaultDBMaxConnLifetime    = 30 * time.Minute
	DefaultDeviceIDPath         = "data/device_id"
	DefaultCacheDir             = "data/cache"
)
