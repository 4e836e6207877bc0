package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/osse101/MinerSync_Go/internal/config"
	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/event"
)

// EventSystem is the in-process bus plus the retrying publisher in front of it.
type EventSystem struct {
	Bus        *event.MemoryBus
	Publisher  *event.ResilientPublisher
	DeadLetter *event.DeadLetterWriter
}

// InitializeEventSystem creates the event bus and the resilient publisher whose dead
// letters are written next to the local cache.
func InitializeEventSystem(cfg *config.Config, clock domain.Clock) (*EventSystem, error) {
	bus := event.NewMemoryBus()

	if err := os.MkdirAll(cfg.CacheDir, DirPermission); err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateDeadLetterDir, err)
	}

	deadLetterPath := filepath.Join(cfg.CacheDir, event.DeadLetterFileName)
	deadLetter, err := event.NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedOpenDeadLetter, err)
	}

	publisher := event.NewResilientPublisher(bus, event.ResilientConfig{
		MaxRetries: EventDefaultMaxRetries,
		RetryDelay: EventDefaultRetryDelay,
	}, deadLetter, clock)

	slog.Info(LogMsgEventSystemInitialized,
		"max_retries", EventDefaultMaxRetries,
		"retry_delay", EventDefaultRetryDelay,
		"deadletter_path", deadLetterPath)

	return &EventSystem{Bus: bus, Publisher: publisher, DeadLetter: deadLetter}, nil
}
