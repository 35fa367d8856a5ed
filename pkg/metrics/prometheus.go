// Package metrics provides Prometheus metrics for the VAR kiosk service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default bucket layouts. Latencies are in milliseconds and top out above the
// telemetry timeout; accuracy is dense near the world-class grades.
var (
	defaultLatencyBuckets  = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // constant bucket layout
	defaultAccuracyBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 99, 100}          //nolint:gochecknoglobals // constant bucket layout
)

// Manager manages all Prometheus metrics for the kiosk service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	accuracyBuckets []float64
	registry        prometheus.Registerer

	// Game loop metrics
	roundsStarted     prometheus.Counter
	phaseTransitions  *prometheus.CounterVec
	clicks            *prometheus.CounterVec
	accuracy          prometheus.Histogram
	scoresSubmitted   prometheus.Counter
	submissionErrors  prometheus.Counter
	activeSessions    prometheus.Gauge
	sessionsRejected  prometheus.Counter
	telemetryFetches  *prometheus.CounterVec
	telemetryLatency  prometheus.Histogram
	mediaResolutions  *prometheus.CounterVec
	normalizationFail prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository Metrics
	repositoryRecordsTotal  prometheus.Gauge
	repositoryAddLatency    prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram
	leaderboardWriteErrors  prometheus.Counter

	// Writer queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	writerLatency      prometheus.Histogram

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "varkiosk",
		subsystem:       "game",
		latencyBuckets:  defaultLatencyBuckets,
		accuracyBuckets: defaultAccuracyBuckets,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.roundsStarted = m.counter("rounds_started_total", "Total number of rounds started")
	m.phaseTransitions = m.counterVec("phase_transitions_total", "Session phase transitions", "from", "to")
	m.clicks = m.counterVec("clicks_total", "Clicks received by outcome (scored or ignored)", "outcome")
	m.accuracy = m.histogram("accuracy_percent", "Distribution of scored round accuracy", m.accuracyBuckets)
	m.scoresSubmitted = m.counter("scores_submitted_total", "Total number of scores persisted to the leaderboard")
	m.submissionErrors = m.counter("submission_errors_total", "Total number of failed leaderboard submissions")
	m.activeSessions = m.gauge("active_sessions", "Number of open kiosk sessions")
	m.sessionsRejected = m.counter("sessions_rejected_total", "Sessions refused because the session limit was reached")
	m.telemetryFetches = m.counterVec("telemetry_fetches_total", "Telemetry event resolutions by source and reason", "source", "reason")
	m.telemetryLatency = m.histogram("telemetry_latency_milliseconds", "Live telemetry request latency in milliseconds", m.latencyBuckets)
	m.mediaResolutions = m.counterVec("media_resolutions_total", "Media URL resolutions by outcome", "outcome")
	m.normalizationFail = m.counter("click_normalization_failures_total", "Clicks that could not be normalized and fell back to the neutral point")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Total number of leaderboard entries")
	m.repositoryAddLatency = m.histogram("repository_add_latency_milliseconds", "Leaderboard append latency in milliseconds", m.latencyBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Leaderboard query latency in milliseconds", m.latencyBuckets)
	m.leaderboardWriteErrors = m.counter("leaderboard_write_errors_total", "Total number of leaderboard write errors")

	m.queueSize = m.gauge("writer_queue_size", "Current number of pending leaderboard writes")
	m.queueCapacity = m.gauge("writer_queue_capacity", "Maximum number of pending leaderboard writes")
	m.queueUtilization = m.gauge("writer_queue_utilization_ratio", "Writer queue utilization ratio (size / capacity)")
	m.queueEnqueue = m.counter("writer_queue_enqueue_total", "Total number of write jobs enqueued")
	m.queueDequeue = m.counter("writer_queue_dequeue_total", "Total number of write jobs dequeued")
	m.queueEnqueueErrors = m.counter("writer_queue_enqueue_errors_total", "Total number of rejected write jobs")
	m.writerLatency = m.histogram("writer_latency_milliseconds", "Time from enqueue to applied write in milliseconds", m.latencyBuckets)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordRoundStarted increments the rounds started counter.
func RecordRoundStarted() {
	globalManager.roundsStarted.Inc()
}

// RecordPhaseTransition counts a session moving between phases.
func RecordPhaseTransition(from, to string) {
	globalManager.phaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordClickScored counts a click that produced a result.
func RecordClickScored() {
	globalManager.clicks.WithLabelValues("scored").Inc()
}

// RecordClickIgnored counts a click received outside the review phase.
func RecordClickIgnored() {
	globalManager.clicks.WithLabelValues("ignored").Inc()
}

// RecordAccuracy observes a scored round's accuracy.
func RecordAccuracy(accuracy float64) {
	globalManager.accuracy.Observe(accuracy)
}

// RecordNormalizationFailure counts clicks that fell back to the neutral point.
func RecordNormalizationFailure() {
	globalManager.normalizationFail.Inc()
}

// RecordScoreSubmitted increments the submitted scores counter.
func RecordScoreSubmitted() {
	globalManager.scoresSubmitted.Inc()
}

// RecordSubmissionError increments the failed submissions counter.
func RecordSubmissionError() {
	globalManager.submissionErrors.Inc()
}

// UpdateActiveSessions sets the number of open sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// RecordSessionRejected counts sessions refused by the session limit.
func RecordSessionRejected() {
	globalManager.sessionsRejected.Inc()
}

// RecordTelemetryFetch counts one resolved event by source ("live"/"fallback") and reason.
func RecordTelemetryFetch(source, reason string) {
	globalManager.telemetryFetches.WithLabelValues(source, reason).Inc()
}

// RecordTelemetryLatency records live telemetry request latency in milliseconds.
func RecordTelemetryLatency(latencyMs float64) {
	globalManager.telemetryLatency.Observe(latencyMs)
}

// RecordMediaResolution counts a media lookup by outcome ("catalog"/"fallback").
func RecordMediaResolution(outcome string) {
	globalManager.mediaResolutions.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateRepositoryRecordsTotal sets the total number of leaderboard entries.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryAddLatency records leaderboard append latency.
func RecordRepositoryAddLatency(latencyMs float64) {
	globalManager.repositoryAddLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records leaderboard query latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordLeaderboardError increments the leaderboard write errors counter.
func RecordLeaderboardError() {
	globalManager.leaderboardWriteErrors.Inc()
}

// UpdateQueueCapacity sets the writer queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current writer queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordWriterLatency records the enqueue-to-applied latency of a write job.
func RecordWriterLatency(latencyMs float64) {
	globalManager.writerLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
