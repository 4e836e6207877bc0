package bootstrap

import (
	"log/slog"

	"github.com/osse101/MinerSync_Go/internal/event"
	"github.com/osse101/MinerSync_Go/internal/metrics"
	"github.com/osse101/MinerSync_Go/internal/sse"
)

// RegisterEventHandlers sets up all event subscribers:
// - Metrics collector (per-type event counts)
// - SSE subscriber (forwards UI events to connected clients)
func RegisterEventHandlers(bus event.Bus, hub *sse.Hub) {
	metrics.NewEventMetricsCollector().Register(bus)
	sse.NewSubscriber(hub, bus).Subscribe()

	slog.Info(LogMsgEventHandlersRegistered)
}
