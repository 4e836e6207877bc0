package metrics

// ============================================================================
// Metric Names
// ============================================================================

// HTTP metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"
)

// ContentTypeEventStream marks long-lived responses excluded from latency
const ContentTypeEventStream = "text/event-stream"

// Event metric names
const (
	MetricNameEventsPublished    = "events_published_total"
	MetricNameEventHandlerErrors = "event_handler_errors_total"
)

// Sync metric names
const (
	MetricNameRemoteReads        = "minersync_remote_reads_total"
	MetricNameRemoteWrites       = "minersync_remote_writes_total"
	MetricNameRemoteErrors       = "minersync_remote_errors_total"
	MetricNameSyncsSkipped       = "minersync_syncs_skipped_total"
	MetricNameSessionConflicts   = "minersync_session_conflicts_total"
	MetricNameSessionTransitions = "minersync_session_transitions_total"
	MetricNamePushRetries        = "minersync_push_retries_total"
)

// Business metric names
const (
	MetricNameSessionsCredited = "minersync_sessions_credited_total"
	MetricNameTokensCredited   = "minersync_tokens_credited_total"
	MetricNameBoostGrants      = "minersync_boost_grants_total"
)

// ============================================================================
// Metric Help Text
// ============================================================================

// HTTP metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"
)

// Event metric help text
const (
	HelpTextEventsPublished    = "Total number of events published"
	HelpTextEventHandlerErrors = "Total number of event handler errors"
)

// Sync metric help text
const (
	HelpTextRemoteReads        = "Remote store reads by kind"
	HelpTextRemoteWrites       = "Remote store writes by operation"
	HelpTextRemoteErrors       = "Remote store failures by operation and class"
	HelpTextSyncsSkipped       = "Foreground syncs skipped because the last sync was recent"
	HelpTextSessionConflicts   = "Sessions overridden by another device's claim"
	HelpTextSessionTransitions = "Session state transitions by target state"
	HelpTextPushRetries        = "Retried remote session pushes"
)

// Business metric help text
const (
	HelpTextSessionsCredited = "Mining sessions credited to the balance"
	HelpTextTokensCredited   = "Total tokens credited from mining sessions"
	HelpTextBoostGrants      = "Boost grants by kind"
)

// ============================================================================
// Metric Label Names
// ============================================================================

// Common label names used across metrics
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelKind      = "kind"
	LabelOperation = "operation"
	LabelClass     = "class"
	LabelState     = "state"
)

// Remote read kinds
const (
	ReadKindSession = "session"
	ReadKindAccount = "account"
	ReadKindBoosts  = "boosts"
)

// ============================================================================
// Histogram Buckets
// ============================================================================

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// ============================================================================
// Log Messages
// ============================================================================

// Debug log messages
const (
	LogMsgEventPayloadUndecodable = "Event payload could not be decoded"
)
