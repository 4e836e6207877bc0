package sse

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/osse101/MinerSync_Go/internal/domain"
	"github.com/osse101/MinerSync_Go/internal/logger"
)

// Handler serves the event stream. The optional "types" query parameter is a
// comma separated list of event types to receive. A Last-Event-ID header (or
// lastEventId query parameter) suppresses replay of events already seen.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, ErrMsgStreamingUnsupported, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		var eventTypes []string
		if filterParam := r.URL.Query().Get("types"); filterParam != "" {
			eventTypes = strings.Split(filterParam, ",")
		}
		lastID := lastEventID(r)

		client := hub.Register(eventTypes, lastID)
		log.Info(LogMsgClientConnected,
			"client_id", client.ID,
			"filters", eventTypes,
			"last_event_id", lastID)

		defer func() {
			hub.Unregister(client.ID)
			log.Info(LogMsgClientDisconnected, "client_id", client.ID)
		}()

		send := func(p []byte) bool {
			if _, err := w.Write(p); err != nil {
				log.Warn(LogMsgWriteError, "error", err)
				return false
			}
			flusher.Flush()
			return true
		}
		write := func(evt Event) bool {
			msg, err := FormatSSEMessage(evt)
			if err != nil {
				log.Error(LogMsgWriteError, "error", err, "event_type", evt.Type)
				return true
			}
			return send(msg)
		}

		if !send([]byte(fmt.Sprintf("retry: %d\n\n", ReconnectDelay.Milliseconds()))) {
			return
		}
		if !write(Event{
			Type:      EventTypeConnected,
			Timestamp: domain.ToMillis(hub.clock.Now()),
			Payload: map[string]interface{}{
				"client_id": client.ID,
				"filters":   eventTypes,
			},
		}) {
			return
		}

		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return

			case evt, ok := <-client.EventChannel:
				if !ok {
					return
				}
				if !write(evt) {
					return
				}

			case <-ticker.C:
				if !send([]byte(KeepaliveComment)) {
					return
				}
			}
		}
	}
}

func lastEventID(r *http.Request) uint64 {
	raw := r.Header.Get(HeaderLastEventID)
	if raw == "" {
		raw = r.URL.Query().Get(QueryLastEventID)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
