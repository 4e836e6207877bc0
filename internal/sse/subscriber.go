package sse

import (
	"context"

	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// BridgedTypes are the bus events forwarded to SSE clients.
var BridgedTypes = []event.Type{
	event.SessionStateChanged,
	event.BalanceChanged,
	event.SessionConflict,
	event.BoostsChanged,
}

// Subscriber bridges the internal event bus to the SSE hub
type Subscriber struct {
	hub *Hub
	bus event.Bus
}

// NewSubscriber creates a new SSE subscriber
func NewSubscriber(hub *Hub, bus event.Bus) *Subscriber {
	return &Subscriber{
		hub: hub,
		bus: bus,
	}
}

// Subscribe registers the forwarding handler for every bridged type.
func (s *Subscriber) Subscribe() {
	types := make([]string, 0, len(BridgedTypes))
	for _, t := range BridgedTypes {
		s.bus.Subscribe(t, s.forward)
		types = append(types, string(t))
	}
	logger.FromContext(context.Background()).Info(LogMsgSubscribed, "types", types)
}

// forward relays the typed payload unchanged; the SSE event type is the bus type.
func (s *Subscriber) forward(ctx context.Context, evt event.Event) error {
	s.hub.Broadcast(string(evt.Type), evt.Payload)
	logger.FromContext(ctx).Debug(LogMsgEventBroadcast, "event_type", evt.Type)
	return nil
}
