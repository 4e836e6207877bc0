package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// Type represents the type of an event
type Type string

// Metadata defines the type for event metadata
type Metadata interface{}

// Event represents a generic event in the system
type Event struct {
	Version  string      `json:"version"` // Event schema version (e.g., "1.0")
	Type     Type        `json:"type"`
	Payload  interface{} `json:"payload"`
	Metadata Metadata    `json:"metadata"`
}

// GetMetadataValue extracts a value from the event metadata safely
func (e Event) GetMetadataValue(key string) interface{} {
	if m, ok := e.Metadata.(map[string]interface{}); ok {
		return m[key]
	}
	return nil
}

// UI-facing event types
const (
	SessionStateChanged Type = "session.state_changed"
	BalanceChanged      Type = "balance.changed"
	SessionConflict     Type = "session.conflict"
	BoostsChanged       Type = "boosts.changed"
)

// SessionStateChangedPayloadV1 is emitted after every session state transition
type SessionStateChangedPayloadV1 struct {
	State           domain.SessionState  `json:"state"`
	Origin          domain.SessionOrigin `json:"origin,omitempty"`
	Active          bool                 `json:"active"`
	StartTime       int64                `json:"start_time"` // epoch millis, 0 when inactive
	RemainingMillis int64                `json:"remaining_millis"`
}

// BalanceChangedPayloadV1 is emitted when the known account balance changes
type BalanceChangedPayloadV1 struct {
	NewTotal decimal.Decimal `json:"new_total"`
	Delta    decimal.Decimal `json:"delta"`
	Source   string          `json:"source"`
}

// SessionConflictPayloadV1 is emitted when the remote session overrode this device's copy
type SessionConflictPayloadV1 struct {
	RemoteDevice domain.DeviceID `json:"remote_device"`
	RemoteStart  int64           `json:"remote_start"`
	LocalStart   int64           `json:"local_start"`
}

// BoostsChangedPayloadV1 is emitted when the effective multiplier may have changed
type BoostsChangedPayloadV1 struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	Active     int             `json:"active"`
}

// NewSessionStateChangedEvent creates a session state event
func NewSessionStateChangedEvent(status domain.SessionStatus) Event {
	var start int64
	if status.StartTime != nil {
		start = domain.ToMillis(*status.StartTime)
	}
	return Event{
		Version: EventSchemaVersion,
		Type:    SessionStateChanged,
		Payload: SessionStateChangedPayloadV1{
			State:           status.State,
			Origin:          status.Origin,
			Active:          status.Active,
			StartTime:       start,
			RemainingMillis: status.RemainingMillis,
		},
	}
}

// NewBalanceChangedEvent creates a balance event
func NewBalanceChangedEvent(newTotal, delta decimal.Decimal, source string) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    BalanceChanged,
		Payload: BalanceChangedPayloadV1{
			NewTotal: newTotal,
			Delta:    delta,
			Source:   source,
		},
		Metadata: map[string]interface{}{
			"source": source,
		},
	}
}

// NewSessionConflictEvent creates a conflict event from the adopted remote session
func NewSessionConflictEvent(remote domain.Session, localStart time.Time) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    SessionConflict,
		Payload: SessionConflictPayloadV1{
			RemoteDevice: remote.OwningDevice,
			RemoteStart:  domain.ToMillis(remote.StartTime),
			LocalStart:   domain.ToMillis(localStart),
		},
	}
}

// NewBoostsChangedEvent creates a boosts event
func NewBoostsChangedEvent(multiplier decimal.Decimal, active int) Event {
	return Event{
		Version: EventSchemaVersion,
		Type:    BoostsChanged,
		Payload: BoostsChangedPayloadV1{
			Multiplier: multiplier,
			Active:     active,
		},
	}
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for an event bus
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType Type, handler Handler)
}

// MemoryBus is an in-memory implementation of the Event Bus
type MemoryBus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewMemoryBus creates a new MemoryBus
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[Type][]Handler),
	}
}

// Publish publishes an event to all subscribers synchronously
func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf(LogMsgHandlerErrorFormat, len(errs), event.Type, errs)
	}

	return nil
}

// Subscribe subscribes a handler to an event type
func (b *MemoryBus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}
