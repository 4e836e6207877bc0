package sse

import "time"

// Channel capacities
const (
	BroadcastBufferSize = 100
	ClientEventBuffer   = 16 // four event types, a few updates each
	ClientChannelBuffer = 10
)

// Stream timing
const (
	KeepaliveInterval = 30 * time.Second
	ReconnectDelay    = 3 * time.Second
)

// Stream framing
const (
	EventTypeConnected = "connected"
	KeepaliveComment   = ": keepalive\n\n"
	HeaderLastEventID  = "Last-Event-ID"
	QueryLastEventID   = "lastEventId"
)

const ErrMsgStreamingUnsupported = "streaming unsupported"

// Log messages
const (
	LogMsgClientConnected    = "SSE client connected"
	LogMsgClientDisconnected = "SSE client disconnected"
	LogMsgEventBroadcast     = "Broadcasting SSE event"
	LogMsgEventDropped       = "SSE broadcast buffer full, event dropped"
	LogMsgWriteError         = "Failed to write SSE event"
	LogMsgSubscribed         = "SSE subscriber registered for event types"
)
