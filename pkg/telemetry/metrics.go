package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for webtime.
type Metrics struct {
	// Clock Metrics
	ClockReads         *prometheus.CounterVec
	HostLookupFailures prometheus.Counter

	// Conversion Metrics
	Conversions        *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec

	// Codec Metrics
	Decodes *prometheus.CounterVec
}

var (
	defaultMu      sync.Mutex
	defaultMetrics *Metrics
)

// InitMetrics initializes the Prometheus metrics.
// This should be called once at startup before any metrics are recorded.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	m := newMetrics(registry)

	defaultMu.Lock()
	defaultMetrics = m
	defaultMu.Unlock()
	return m
}

// Default returns the default metrics instance.
// If InitMetrics hasn't been called, it will initialize with the default registry.
func Default() *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMetrics == nil {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer)
	}
	return defaultMetrics
}

func newMetrics(registry prometheus.Registerer) *Metrics {
	// A conversion is a handful of integer operations, so buckets start at
	// 10ns and stop at 10µs. Anything slower is a scheduling hiccup.
	conversionBuckets := []float64{
		0.00000001, // 10ns
		0.00000002, // 20ns
		0.00000005, // 50ns
		0.0000001,  // 100ns
		0.0000002,  // 200ns
		0.0000005,  // 500ns
		0.000001,   // 1µs
		0.00001,    // 10µs
	}

	return &Metrics{
		ClockReads: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtime_clock_reads_total",
				Help: "Total number of clock readings taken from the host",
			},
			[]string{"clock"},
		),

		HostLookupFailures: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "webtime_host_lookup_failures_total",
				Help: "Number of execution contexts that had no Performance object",
			},
		),

		Conversions: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtime_conversions_total",
				Help: "Total number of millisecond timestamps converted to durations",
			},
			[]string{"strategy", "regime"},
		),

		ConversionDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webtime_conversion_duration_seconds",
				Help:    "Time taken to convert a millisecond timestamp",
				Buckets: conversionBuckets,
			},
			[]string{"strategy"},
		),

		Decodes: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webtime_decodes_total",
				Help: "Total number of SystemTime records decoded",
			},
			[]string{"format", "result"},
		),
	}
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Observe records the elapsed time in seconds to the given histogram.
func (t *Timer) Observe(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
