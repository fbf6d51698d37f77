// Package metrics provides Prometheus metrics for the matchday live desk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the live desk.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Live state
	patchesApplied *prometheus.CounterVec
	patchesIgnored *prometheus.CounterVec
	patchesPending prometheus.Gauge
	snapshotLoads  *prometheus.CounterVec
	snapshotLoadMs prometheus.Histogram
	activeSessions prometheus.Gauge
	liveFixtures   prometheus.Gauge

	// REST collaborator
	restRequests *prometheus.CounterVec
	restLatency  *prometheus.HistogramVec

	// Socket collaborator
	socketMessages    *prometheus.CounterVec
	socketParseErrors prometheus.Counter
	socketReconnects  prometheus.Counter
	socketConnected   prometheus.Gauge
	roomsJoined       prometheus.Gauge

	// Dispatch queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	dispatchLatency    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // custom registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global collectors with opts on a fresh registry.
// Call it at startup, before anything records a metric or reads GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchday",
		subsystem:        "livedesk",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.patchesApplied = auto.NewCounterVec(m.counterOpts("patches_applied_total", "Socket patches applied to a live snapshot"), []string{"kind"})
	m.patchesIgnored = auto.NewCounterVec(m.counterOpts("patches_ignored_total", "Socket patches dropped without changing state"), []string{"kind", "reason"})
	m.patchesPending = auto.NewGauge(m.gaugeOpts("patches_pending", "Patches buffered while a snapshot load is in flight"))
	m.snapshotLoads = auto.NewCounterVec(m.counterOpts("snapshot_loads_total", "REST snapshot loads by result"), []string{"result"})
	m.snapshotLoadMs = auto.NewHistogram(m.histogramOpts("snapshot_load_latency_milliseconds", "REST snapshot load latency"))
	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions", "Fixtures currently watched by at least one viewer"))
	m.liveFixtures = auto.NewGauge(m.gaugeOpts("live_fixtures", "Fixtures listed on the all-active board"))

	m.restRequests = auto.NewCounterVec(m.counterOpts("rest_requests_total", "REST collaborator calls by operation and result"), []string{"op", "result"})
	m.restLatency = auto.NewHistogramVec(m.histogramOpts("rest_latency_milliseconds", "REST collaborator latency"), []string{"op"})

	m.socketMessages = auto.NewCounterVec(m.counterOpts("socket_messages_total", "Socket frames received by event"), []string{"event"})
	m.socketParseErrors = auto.NewCounter(m.counterOpts("socket_parse_errors_total", "Socket frames that could not be decoded"))
	m.socketReconnects = auto.NewCounter(m.counterOpts("socket_reconnects_total", "Socket reconnect attempts"))
	m.socketConnected = auto.NewGauge(m.gaugeOpts("socket_connected", "1 while the socket channel is connected"))
	m.roomsJoined = auto.NewGauge(m.gaugeOpts("rooms_joined", "Socket rooms currently joined"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("dispatch_queue_size", "Patches waiting for dispatch"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("dispatch_queue_capacity", "Dispatch queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("dispatch_queue_utilization_ratio", "Dispatch queue size / capacity"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("dispatch_queue_enqueue_errors_total", "Patches rejected by the dispatch queue"), []string{"reason"})
	m.dispatchLatency = auto.NewHistogram(m.histogramOpts("dispatch_latency_milliseconds", "Time spent running handlers for one patch"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordPatchApplied counts a patch that changed a snapshot.
func RecordPatchApplied(kind string) {
	globalManager.patchesApplied.WithLabelValues(kind).Inc()
}

// RecordPatchIgnored counts a patch dropped for reason.
func RecordPatchIgnored(kind, reason string) {
	globalManager.patchesIgnored.WithLabelValues(kind, reason).Inc()
}

// UpdatePatchesPending sets the number of buffered patches.
func UpdatePatchesPending(n int) {
	globalManager.patchesPending.Set(float64(n))
}

// RecordSnapshotLoad counts a snapshot load and observes its latency.
func RecordSnapshotLoad(result string, latencyMs float64) {
	globalManager.snapshotLoads.WithLabelValues(result).Inc()
	globalManager.snapshotLoadMs.Observe(latencyMs)
}

// UpdateActiveSessions sets the number of watched fixtures.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// UpdateLiveFixtures sets the number of fixtures on the board.
func UpdateLiveFixtures(n int) {
	globalManager.liveFixtures.Set(float64(n))
}

// RecordRESTRequest counts a REST call and observes its latency.
func RecordRESTRequest(op, result string, latencyMs float64) {
	globalManager.restRequests.WithLabelValues(op, result).Inc()
	globalManager.restLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordSocketMessage counts a received socket frame.
func RecordSocketMessage(event string) {
	globalManager.socketMessages.WithLabelValues(event).Inc()
}

// RecordSocketParseError counts an undecodable socket frame.
func RecordSocketParseError() {
	globalManager.socketParseErrors.Inc()
}

// RecordSocketReconnect counts a reconnect attempt.
func RecordSocketReconnect() {
	globalManager.socketReconnects.Inc()
}

// UpdateSocketConnected flips the connected gauge.
func UpdateSocketConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	globalManager.socketConnected.Set(v)
}

// UpdateRoomsJoined sets the number of joined rooms.
func UpdateRoomsJoined(n int) {
	globalManager.roomsJoined.Set(float64(n))
}

// UpdateQueueSize sets the current dispatch queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the dispatch queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordDispatchLatency observes handler run time for one patch.
func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
