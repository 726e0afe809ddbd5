package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the fitting service.
type Metrics struct {
	// Fit Metrics
	FitsTotal    *prometheus.CounterVec
	FitDuration  *prometheus.HistogramVec
	BasisSize    prometheus.Histogram
	Combinations *prometheus.CounterVec
	// FitAllocBytes is only observed when fits are profiled.
	FitAllocBytes *prometheus.HistogramVec

	// Runtime Metrics
	HeapBytes  prometheus.Gauge
	Goroutines prometheus.Gauge
	GCRuns     prometheus.Gauge

	// HTTP Metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Worker Pool Metrics
	QueueDepth      *prometheus.GaugeVec
	WebhooksDropped prometheus.Counter
}

// InitMetrics registers the metrics with registry, the default registerer
// when nil.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	// Fits range from a few milliseconds to tens of seconds.
	fitBuckets := prometheus.ExponentialBuckets(0.001, 2, 16)

	return &Metrics{
		FitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "govar_fits_total",
				Help: "Total number of light curve fits",
			},
			[]string{"method", "status"},
		),

		FitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govar_fit_duration_seconds",
				Help:    "Time taken to fit a light curve",
				Buckets: fitBuckets,
			},
			[]string{"method"},
		),

		BasisSize: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "govar_basis_size",
				Help:    "Number of independent frequencies per fit",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),

		Combinations: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "govar_combination_lookups_total",
				Help: "Total number of combination lookups",
			},
			[]string{"found"},
		),

		FitAllocBytes: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govar_fit_alloc_bytes",
				Help:    "Bytes allocated while fitting a light curve",
				Buckets: prometheus.ExponentialBuckets(1<<16, 4, 10),
			},
			[]string{"method"},
		),

		HeapBytes: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "govar_heap_alloc_bytes",
				Help: "Heap bytes in use at the last sample",
			},
		),

		Goroutines: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "govar_goroutines",
				Help: "Goroutines at the last sample",
			},
		),

		GCRuns: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "govar_gc_runs",
				Help: "Completed GC cycles at the last sample",
			},
		),

		HTTPRequests: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "govar_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "code"},
		),

		HTTPDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "govar_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler"},
		),

		QueueDepth: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "govar_worker_queue_depth",
				Help: "Number of queued items per worker pool channel",
			},
			[]string{"queue"},
		),

		WebhooksDropped: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "govar_webhooks_dropped_total",
				Help: "Webhooks dropped because the queue was full",
			},
		),
	}
}

// ObserveFit records one finished fit. A nil Metrics is a no-op.
func (m *Metrics) ObserveFit(method string, basisSize int, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FitsTotal.WithLabelValues(method, status).Inc()
	m.FitDuration.WithLabelValues(method).Observe(d.Seconds())
	if err == nil && basisSize > 0 {
		m.BasisSize.Observe(float64(basisSize))
	}
}

// ObserveCombination counts one resolver lookup.
func (m *Metrics) ObserveCombination(found bool) {
	if m == nil {
		return
	}
	label := "false"
	if found {
		label = "true"
	}
	m.Combinations.WithLabelValues(label).Inc()
}

// ObserveFitAlloc records the bytes one profiled fit allocated.
func (m *Metrics) ObserveFitAlloc(method string, bytes uint64) {
	if m == nil {
		return
	}
	m.FitAllocBytes.WithLabelValues(method).Observe(float64(bytes))
}

// ObserveRuntime sets the runtime gauges from one sample.
func (m *Metrics) ObserveRuntime(heapBytes uint64, goroutines int, gcRuns uint32) {
	if m == nil {
		return
	}
	m.HeapBytes.Set(float64(heapBytes))
	m.Goroutines.Set(float64(goroutines))
	m.GCRuns.Set(float64(gcRuns))
}
