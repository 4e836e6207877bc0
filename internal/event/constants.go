package event

// Event schema versioning
const (
	// EventSchemaVersion is the current event schema version
	EventSchemaVersion = "1.0"
)

// Log message constants
const (
	// Log message for handler errors
	LogMsgHandlerErrorFormat = "encountered %d errors while handling event %s: %v"
	LogMsgPayloadUndecodable = "event payload undecodable"
)

// Dead-letter file settings
const (
	// DeadLetterSchemaVersion is the current version of the dead-letter log format.
	// Increment this when changing the DeadLetterEntry structure.
	DeadLetterSchemaVersion   = "1.0"
	DeadLetterFileName        = "events.deadletter.jsonl"
	DeadLetterFilePermissions = 0o600
)

// Resilient publisher log messages
const (
	LogMsgPublishFailed    = "Failed to publish event, retrying in background"
	LogMsgPublishRecovered = "Published event after retry"
	LogMsgDeadLettered     = "Event dead-lettered"
	LogMsgDeadLetterFailed = "Failed to write dead letter"
)
