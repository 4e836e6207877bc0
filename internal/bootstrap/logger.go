package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/osse101/MinerSync_Go/internal/config"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// SetupLogger initializes the application logger with file and stdout output.
// Log files live under <CACHE_DIR>/logs and only the most recent few are kept.
// Returns the log file handle (caller must close).
func SetupLogger(cfg *config.Config, version string) (*os.File, error) {
	logDir := filepath.Join(cfg.CacheDir, LogDirName)
	if err := os.MkdirAll(logDir, DirPermission); err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateLogsDir, err)
	}

	cleanupLogs(logDir)

	timestamp := time.Now().Format(LogFileTimestampFormat)
	logFileName := filepath.Join(logDir, fmt.Sprintf(LogFileNamePattern, timestamp))

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermission)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedOpenLogFile, err)
	}

	logCfg := logger.ForEnvironment(cfg.Environment).Override(cfg.LogLevel, cfg.LogFormat)
	logCfg.ServiceName = ServiceName
	logCfg.Version = version
	logger.InitLoggerWithWriter(logCfg, io.MultiWriter(os.Stdout, logFile))

	slog.Info(LogMsgLoggingInitialized, "level", logCfg.Level, "file", logFileName)
	slog.Info(LogMsgStarting,
		"environment", cfg.Environment,
		"log_format", logCfg.Format,
		"version", version,
		"account_id", cfg.AccountID)

	slog.Debug(LogMsgConfigurationLoaded,
		"remote_backend", cfg.RemoteBackend,
		"db_host", cfg.DBHost,
		"db_port", cfg.DBPort,
		"db_name", cfg.DBName,
		"port", cfg.Port,
		"session_duration", cfg.SessionDuration,
		"min_sync_interval", cfg.MinSyncInterval)

	return logFile, nil
}

// cleanupLogs removes old log files so that a new one brings the count back to
// LogFileRetentionCount.
func cleanupLogs(logDir string) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	var logFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), LogFileExtension) {
			logFiles = append(logFiles, entry.Name())
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(logFiles)

	for len(logFiles) > LogFileRetentionCount-1 {
		if err := os.Remove(filepath.Join(logDir, logFiles[0])); err != nil {
			slog.Warn(LogMsgFailedDeleteOldLog, "file", logFiles[0], "error", err)
		}
		logFiles = logFiles[1:]
	}
}
