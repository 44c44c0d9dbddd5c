// Package metrics provides Prometheus metrics for the pairrank service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Millisecond buckets. Store and HTTP calls are fast; human decisions are not.
var ( //nolint:gochecknoglobals // bucket layouts
	defaultLatencyBuckets  = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}
	defaultDecisionBuckets = []float64{250, 500, 1000, 2000, 3000, 5000, 10000, 20000, 60000}
)

// Manager manages all Prometheus metrics for the pairrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	decisionBuckets  []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking engine
	judgments        *prometheus.CounterVec
	conflicts        prometheus.Counter
	decisionLatency  prometheus.Histogram
	ratingDelta      prometheus.Histogram
	selections       *prometheus.CounterVec
	boosts           prometheus.Counter
	resets           prometheus.Counter
	itemsTotal       prometheus.Gauge
	historyLength    prometheus.Gauge
	progressFraction prometheus.Gauge
	leaderRating     prometheus.Gauge

	// Persistence
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Notifications
	notifyEnqueued    prometheus.Counter
	notifyDropped     prometheus.Counter
	notifyDelivered   *prometheus.CounterVec
	notifyQueueSize   prometheus.Gauge
	streamSubscribers prometheus.Gauge
	choiceDuplicates  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry. It must run
// at startup, before any recorder or GetRegistry caller.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pairrank",
		subsystem:        "engine",
		histogramBuckets: defaultLatencyBuckets,
		decisionBuckets:  defaultDecisionBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.judgments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "judgments_total",
		Help: "Resolved comparisons by resolution kind (human, auto)",
	}, []string{"kind"})

	m.conflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "conflicts_total",
		Help: "Human decisions slower than the hard-choice threshold",
	})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "decision_latency_milliseconds",
		Help:    "Time between presenting a pair and the human choice",
		Buckets: m.decisionBuckets,
	})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "rating_delta_points",
		Help:    "Rating points moved per resolved comparison",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90},
	})

	m.selections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "selections_total",
		Help: "Pairs selected by the matchmaker, by phase",
	}, []string{"phase"})

	m.boosts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "boosts_total",
		Help: "Manual rating boosts",
	})

	m.resets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "resets_total",
		Help: "Full session resets",
	})

	m.itemsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "items",
		Help: "Number of ranked items in the session",
	})

	m.historyLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "history_length",
		Help: "Number of judgments in the session history",
	})

	m.progressFraction = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "progress_ratio",
		Help: "Session progress toward the convergence target (0..1)",
	})

	m.leaderRating = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "leader_rating",
		Help: "Rating of the current top-ranked item",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "store_operation_milliseconds",
		Help:    "State store operation latency by backend and operation",
		Buckets: m.histogramBuckets,
	}, []string{"backend", "op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "store_errors_total",
		Help: "State store failures by backend and operation",
	}, []string{"backend", "op"})

	m.notifyEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "notifications_enqueued_total",
		Help: "Notifications accepted by the notification queue",
	})

	m.notifyDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the queue was full or closed",
	})

	m.notifyDelivered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "notifications_delivered_total",
		Help: "Notifications delivered to sinks by kind",
	}, []string{"kind"})

	m.notifyQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "notification_queue_size",
		Help: "Current notification backlog",
	})

	m.streamSubscribers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "stream_subscribers",
		Help: "Connected WebSocket subscribers",
	})

	m.choiceDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "choice_duplicates_total",
		Help: "Choice submissions acknowledged as duplicates",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_type_total",
		Help: "Errors by type and severity",
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "system_memory_usage_bytes",
		Help: "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
}

// Engine metrics.

// RecordJudgment increments the judgment counter for kind ("human" or "auto").
func RecordJudgment(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.judgments.WithLabelValues(kind).Inc()
}

// RecordConflict increments the hard-choice counter.
func RecordConflict() {
	if !globalManager.enabled {
		return
	}
	globalManager.conflicts.Inc()
}

// RecordDecisionLatency records how long a human took to choose.
func RecordDecisionLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordRatingDelta records the rating points moved by one comparison.
func RecordRatingDelta(delta float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ratingDelta.Observe(delta)
}

// RecordSelection increments the selection counter for a matchmaking phase.
func RecordSelection(phase string) {
	if !globalManager.enabled {
		return
	}
	globalManager.selections.WithLabelValues(phase).Inc()
}

// RecordBoost increments the manual boost counter.
func RecordBoost() {
	if !globalManager.enabled {
		return
	}
	globalManager.boosts.Inc()
}

// RecordReset increments the reset counter.
func RecordReset() {
	if !globalManager.enabled {
		return
	}
	globalManager.resets.Inc()
}

// UpdateSessionGauges refreshes the session-level gauges in one call.
func UpdateSessionGauges(items, history int, progress, leaderRating float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.itemsTotal.Set(float64(items))
	globalManager.historyLength.Set(float64(history))
	globalManager.progressFraction.Set(progress)
	globalManager.leaderRating.Set(leaderRating)
}

// Persistence metrics.

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError increments the store error counter.
func RecordStoreError(backend, op string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// Notification metrics.

// RecordNotificationEnqueued increments the accepted notification counter.
func RecordNotificationEnqueued() {
	if !globalManager.enabled {
		return
	}
	globalManager.notifyEnqueued.Inc()
}

// RecordNotificationDropped increments the dropped notification counter.
func RecordNotificationDropped() {
	if !globalManager.enabled {
		return
	}
	globalManager.notifyDropped.Inc()
}

// RecordNotificationDelivered increments the delivered counter for kind.
func RecordNotificationDelivered(kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.notifyDelivered.WithLabelValues(kind).Inc()
}

// UpdateNotificationQueueSize sets the notification backlog gauge.
func UpdateNotificationQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.notifyQueueSize.Set(float64(size))
}

// UpdateStreamSubscribers sets the WebSocket subscriber gauge.
func UpdateStreamSubscribers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.streamSubscribers.Set(float64(count))
}

// RecordChoiceDuplicate increments the duplicate choice counter.
func RecordChoiceDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.choiceDuplicates.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval reports how often callers should refresh gauges.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
