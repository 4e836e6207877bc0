package config

import (
	"fmt"
	"strings"
)

// ExpectedEnvSchemaVersion is the .env layout this build understands
const ExpectedEnvSchemaVersion = "1.0"

// postgresEnvVars must be set when the remote store is PostgreSQL
var postgresEnvVars = []string{"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME"}

// Placeholder values shipped in .env.example
const (
	exampleDBPassword = "change_this_secure_password"
	exampleAPIKey     = "generate_with_openssl_rand_hex_32"
	minAPIKeyLength   = 16
)

// CheckEnv verifies the environment against the expected schema: the schema
// version must match and, for the postgres backend, every connection variable
// must be set explicitly. lookup is os.Getenv outside tests.
func CheckEnv(lookup func(string) string) error {
	switch v := lookup("ENV_SCHEMA_VERSION"); v {
	case ExpectedEnvSchemaVersion:
	case "":
		return fmt.Errorf("ENV_SCHEMA_VERSION is not set - please update your .env file to include this field (expected: %s)", ExpectedEnvSchemaVersion)
	default:
		return fmt.Errorf("ENV_SCHEMA_VERSION mismatch: expected %s, got %s - your .env file may be outdated", ExpectedEnvSchemaVersion, v)
	}

	if lookup("REMOTE_BACKEND") == RemoteBackendMemory {
		return nil
	}
	var missing []string
	for _, key := range postgresEnvVars {
		if lookup(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Warnings lists settings that load fine but are probably unintended.
func (c *Config) Warnings() []string {
	var warnings []string

	switch {
	case c.APIKey == exampleAPIKey:
		warnings = append(warnings, "API_KEY appears to be using the example value - generate a secure key with: openssl rand -hex 32")
	case len(c.APIKey) < minAPIKeyLength:
		warnings = append(warnings, fmt.Sprintf("API_KEY is shorter than %d characters", minAPIKeyLength))
	}

	if c.UsesPostgres() && c.DBPassword == exampleDBPassword {
		warnings = append(warnings, "DB_PASSWORD appears to be using the example value - please use a secure password")
	}
	if !c.UsesPostgres() {
		warnings = append(warnings, "REMOTE_BACKEND=memory keeps account state in process memory - balances are lost on restart")
	}

	if c.PeriodicSyncInterval >= c.SessionDuration {
		warnings = append(warnings, fmt.Sprintf("PERIODIC_SYNC_INTERVAL (%s) is not shorter than SESSION_DURATION (%s) - sessions will see no light syncs", c.PeriodicSyncInterval, c.SessionDuration))
	}
	if c.MinSyncInterval == 0 {
		warnings = append(warnings, "MIN_SYNC_INTERVAL is 0 - every foreground will read the remote store")
	}

	return warnings
}
