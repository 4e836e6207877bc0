// Package sse streams session, balance, conflict and boost events to the UI shell.
package sse

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

// Event is one message on the stream. ID is the hub sequence number so a
// reconnecting EventSource can resume through Last-Event-ID.
type Event struct {
	ID        string      `json:"id,omitempty"`
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"` // epoch millis
	Payload   interface{} `json:"payload"`

	seq uint64
}

// Client is a connected stream consumer.
type Client struct {
	ID           string
	EventChannel chan Event
	EventFilter  map[string]bool // nil means all events

	lastSeen uint64
}

func (c *Client) wants(eventType string) bool {
	return c.EventFilter == nil || c.EventFilter[eventType]
}

// Hub fans events out to clients. It keeps the latest event of each type so a
// client connecting mid-session gets current state, skipping anything at or
// below the sequence it reports having seen.
type Hub struct {
	clock      domain.Clock
	clients    map[string]*Client
	latest     map[string]Event
	seq        uint64
	broadcast  chan Event
	register   chan *Client
	unregister chan string
	mu         sync.RWMutex
	shutdown   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewHub creates a hub stamping events with clock.
func NewHub(clock domain.Clock) *Hub {
	return &Hub{
		clock:      clock,
		clients:    make(map[string]*Client),
		latest:     make(map[string]Event),
		broadcast:  make(chan Event, BroadcastBufferSize),
		register:   make(chan *Client, ClientChannelBuffer),
		unregister: make(chan string, ClientChannelBuffer),
		shutdown:   make(chan struct{}),
	}
}

// Start runs the fan-out loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop ends the loop and closes every client channel. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.shutdown)
		h.wg.Wait()

		h.mu.Lock()
		for id, client := range h.clients {
			close(client.EventChannel)
			delete(h.clients, id)
		}
		h.mu.Unlock()
	})
}

func (h *Hub) run() {
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			for _, evt := range h.replayFor(client) {
				deliver(client, evt)
			}
			h.mu.Unlock()

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[clientID]; ok {
				close(client.EventChannel)
				delete(h.clients, clientID)
			}
			h.mu.Unlock()

		case evt := <-h.broadcast:
			h.mu.Lock()
			h.seq++
			evt.seq = h.seq
			evt.ID = strconv.FormatUint(h.seq, 10)
			h.latest[evt.Type] = evt
			for _, client := range h.clients {
				if client.wants(evt.Type) {
					deliver(client, evt)
				}
			}
			h.mu.Unlock()

		case <-h.shutdown:
			return
		}
	}
}

// replayFor returns the retained events the client has not seen, oldest first.
// Caller must hold mu.
func (h *Hub) replayFor(client *Client) []Event {
	var out []Event
	for eventType, evt := range h.latest {
		if client.wants(eventType) && evt.seq > client.lastSeen {
			out = append(out, evt)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].seq < out[j-1].seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// deliver drops the event for a slow client rather than stall the hub.
func deliver(client *Client, evt Event) {
	select {
	case client.EventChannel <- evt:
	default:
	}
}

// Register adds a client interested in eventTypes (all when empty) that has
// already seen events up to lastEventID.
func (h *Hub) Register(eventTypes []string, lastEventID uint64) *Client {
	client := &Client{
		ID:           uuid.New().String(),
		EventChannel: make(chan Event, ClientEventBuffer),
		lastSeen:     lastEventID,
	}

	if len(eventTypes) > 0 {
		client.EventFilter = make(map[string]bool, len(eventTypes))
		for _, t := range eventTypes {
			client.EventFilter[strings.TrimSpace(t)] = true
		}
	}

	h.register <- client
	return client
}

// Unregister removes a client.
func (h *Hub) Unregister(clientID string) {
	select {
	case h.unregister <- clientID:
	case <-h.shutdown:
	}
}

// Broadcast queues an event for every interested client.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	evt := Event{
		Type:      eventType,
		Timestamp: domain.ToMillis(h.clock.Now()),
		Payload:   payload,
	}

	select {
	case h.broadcast <- evt:
	default:
		slog.Default().Warn(LogMsgEventDropped, "event_type", eventType)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// FormatSSEMessage renders evt in text/event-stream framing. Events without an
// ID omit the id line so the browser keeps its resume position.
func FormatSSEMessage(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if evt.ID != "" {
		b.WriteString("id: " + evt.ID + "\n")
	}
	b.WriteString("event: " + evt.Type + "\n")
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
	return []byte(b.String()), nil
}
