package metrics

import (
	"context"

	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// EventMetricsCollector subscribes to events and records metrics
type EventMetricsCollector struct{}

// NewEventMetricsCollector creates a new event metrics collector
func NewEventMetricsCollector() *EventMetricsCollector {
	return &EventMetricsCollector{}
}

// Register subscribes to all UI events
func (e *EventMetricsCollector) Register(bus event.Bus) {
	for _, eventType := range []event.Type{
		event.SessionStateChanged,
		event.BalanceChanged,
		event.SessionConflict,
		event.BoostsChanged,
	} {
		bus.Subscribe(eventType, e.HandleEvent)
	}
}

// HandleEvent counts the event and checks its payload decodes. Session transitions and
// conflicts are counted by the reconciler itself.
func (e *EventMetricsCollector) HandleEvent(ctx context.Context, evt event.Event) error {
	EventsPublished.WithLabelValues(string(evt.Type)).Inc()

	if _, err := event.DecodeEvent(evt); err != nil {
		EventHandlerErrors.WithLabelValues(string(evt.Type)).Inc()
		logger.FromContext(ctx).Debug(LogMsgEventPayloadUndecodable, "type", evt.Type, "error", err)
	}

	return nil
}
