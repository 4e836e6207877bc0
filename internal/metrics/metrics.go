package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Event Metrics
var (
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventsPublished,
			Help: HelpTextEventsPublished,
		},
		[]string{LabelType},
	)

	EventHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEventHandlerErrors,
			Help: HelpTextEventHandlerErrors,
		},
		[]string{LabelType},
	)
)

// Sync Metrics
var (
	RemoteReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRemoteReads,
			Help: HelpTextRemoteReads,
		},
		[]string{LabelKind},
	)

	RemoteWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRemoteWrites,
			Help: HelpTextRemoteWrites,
		},
		[]string{LabelOperation},
	)

	RemoteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRemoteErrors,
			Help: HelpTextRemoteErrors,
		},
		[]string{LabelOperation, LabelClass},
	)

	SyncsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSyncsSkipped,
			Help: HelpTextSyncsSkipped,
		},
	)

	SessionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSessionConflicts,
			Help: HelpTextSessionConflicts,
		},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSessionTransitions,
			Help: HelpTextSessionTransitions,
		},
		[]string{LabelState},
	)

	PushRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNamePushRetries,
			Help: HelpTextPushRetries,
		},
	)
)

// Business Metrics
var (
	SessionsCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameSessionsCredited,
			Help: HelpTextSessionsCredited,
		},
	)

	TokensCredited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameTokensCredited,
			Help: HelpTextTokensCredited,
		},
	)

	BoostGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameBoostGrants,
			Help: HelpTextBoostGrants,
		},
		[]string{LabelKind},
	)
)
