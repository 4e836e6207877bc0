package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the application configuration
type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	LogLevel    string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat   string `validate:"omitempty,oneof=json text"`
	Environment string `validate:"required"`
	Version     string

	APIKey         string   // API key for authentication
	TrustedProxies []string // Peers allowed to set X-Forwarded-For

	// Remote store
	RemoteBackend     string `validate:"oneof=postgres memory"`
	DBUser            string
	DBPassword        string
	DBHost            string
	DBPort            string
	DBName            string
	DBMaxConns        int           `validate:"min=1"`
	DBMaxConnIdleTime time.Duration `validate:"min=0"`
	DBMaxConnLifetime time.Duration `validate:"min=0"`

	// Identity and local persistence
	AccountID    string `validate:"required"`
	DeviceIDPath string `validate:"required"`
	CacheDir     string `validate:"required"`

	// Mining session tuning
	BaseRate             decimal.Decimal
	SessionDuration      time.Duration `validate:"gt=0"`
	MinSyncInterval      time.Duration `validate:"min=0"`
	PeriodicSyncInterval time.Duration `validate:"gt=0"`
	CacheTTL             time.Duration `validate:"min=0"`
	BoostTTL             time.Duration `validate:"min=0"`
	PushMaxRetries       int           `validate:"min=0"`
	PushRetryDelay       time.Duration `validate:"gt=0"`
	WorkerCount          int           `validate:"min=1"`
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", ""),
		LogFormat:   getEnv("LOG_FORMAT", ""),
		Environment: getEnv("ENVIRONMENT", "dev"),
		Version:     getEnv("VERSION", "dev"),
		APIKey:      getEnv("API_KEY", ""),

		RemoteBackend:     getEnv("REMOTE_BACKEND", RemoteBackendPostgres),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            getEnv("DB_NAME", "minersync"),
		DBMaxConns:        getEnvAsInt("DB_MAX_CONNS", DefaultDBMaxConns),
		DBMaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", DefaultDBMaxConnIdleTime),
		DBMaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", DefaultDBMaxConnLifetime),

		AccountID:    getEnv("ACCOUNT_ID", ""),
		DeviceIDPath: getEnv("DEVICE_ID_PATH", DefaultDeviceIDPath),
		CacheDir:     getEnv("CACHE_DIR", DefaultCacheDir),

		SessionDuration:      getEnvAsDuration("SESSION_DURATION", DefaultSessionDuration),
		MinSyncInterval:      getEnvAsDuration("MIN_SYNC_INTERVAL", DefaultMinSyncInterval),
		PeriodicSyncInterval: getEnvAsDuration("PERIODIC_SYNC_INTERVAL", DefaultPeriodicSyncInterval),
		CacheTTL:             getEnvAsDuration("CACHE_TTL", DefaultCacheTTL),
		BoostTTL:             getEnvAsDuration("BOOST_TTL", DefaultBoostTTL),
		PushMaxRetries:       getEnvAsInt("PUSH_MAX_RETRIES", DefaultPushMaxRetries),
		PushRetryDelay:       getEnvAsDuration("PUSH_RETRY_DELAY", DefaultPushRetryDelay),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", DefaultWorkerCount),
	}

	portStr := getEnv("PORT", strconv.Itoa(DefaultPort))
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	rate, err := decimal.NewFromString(getEnv("BASE_RATE", DefaultBaseRate))
	if err != nil {
		return nil, fmt.Errorf("invalid BASE_RATE value: %w", err)
	}
	cfg.BaseRate = rate

	// Validate API key is set
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints that cannot be expressed as defaults.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.BaseRate.IsPositive() {
		return fmt.Errorf("invalid configuration: BASE_RATE must be positive, got %s", c.BaseRate)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt parses an integer environment variable, falling back to the default on error
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration parses a Go duration string, falling back to the default on error
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}

// UsesPostgres reports whether the remote store is backed by PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.RemoteBackend == RemoteBackendPostgres
}
