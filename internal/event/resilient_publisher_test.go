package event

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

func TestResilientPublisher_RecoversAfterRetry(t *testing.T) {
	bus := NewMemoryBus()
	var calls atomic.Int32
	bus.Subscribe(BalanceChanged, func(ctx context.Context, e Event) error {
		if calls.Add(1) < 3 {
			return errors.New("subscriber busy")
		}
		return nil
	})

	clock := domain.NewSimulatedClock(time.Unix(0, 0))
	p := NewResilientPublisher(bus, ResilientConfig{MaxRetries: 5, RetryDelay: time.Millisecond}, nil, clock)

	require.NoError(t, p.Publish(context.Background(), Event{Type: BalanceChanged}))
	p.Wait()

	assert.Equal(t, int32(3), calls.Load())
}

func TestResilientPublisher_DeadLettersAfterLastAttempt(t *testing.T) {
	bus := NewMemoryBus()
	bus.Subscribe(SessionConflict, func(ctx context.Context, e Event) error {
		return errors.New("always down")
	})

	path := filepath.Join(t.TempDir(), DeadLetterFileName)
	dlw, err := NewDeadLetterWriter(path)
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	p := NewResilientPublisher(bus, ResilientConfig{MaxRetries: 2, RetryDelay: time.Millisecond}, dlw, domain.NewSimulatedClock(at))

	require.NoError(t, p.Publish(context.Background(), Event{Version: EventSchemaVersion, Type: SessionConflict}))
	p.Wait()
	require.NoError(t, dlw.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry DeadLetterEntry
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, DeadLetterSchemaVersion, entry.SchemaVersion)
	assert.Equal(t, SessionConflict, entry.Event.Type)
	assert.Equal(t, 4, entry.Attempts)
	assert.Equal(t, at.UnixMilli(), entry.TimestampMs)
	assert.Equal(t, "encountered 1 errors while handling event session.conflict: [always down]", entry.LastError)
	assert.False(t, scanner.Scan())
}

func TestResilientPublisher_SuccessIsSynchronous(t *testing.T) {
	bus := NewMemoryBus()
	handled := false
	bus.Subscribe(BoostsChanged, func(ctx context.Context, e Event) error {
		handled = true
		return nil
	})

	p := NewResilientPublisher(bus, ResilientConfig{MaxRetries: 1, RetryDelay: time.Millisecond}, nil, domain.NewRealClock())
	require.NoError(t, p.Publish(context.Background(), Event{Type: BoostsChanged}))

	assert.True(t, handled)
}
