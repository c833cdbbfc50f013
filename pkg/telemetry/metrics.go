package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for brewplan.
type Metrics struct {
	config MetricsConfig

	// Generation metrics
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	// Manifest metrics
	manifestBytes    prometheus.Gauge
	manifestEntities *prometheus.GaugeVec

	// Compile error metrics
	compileErrors *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec
	policyDuration   prometheus.Histogram

	// Watch metrics
	watchRebuilds *prometheus.CounterVec

	// Remote push metrics
	pushesTotal  *prometheus.CounterVec
	pushDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of manifest generations",
			},
			[]string{"status"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of manifest generation in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		manifestBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "manifest_bytes",
				Help:      "Size in bytes of the last generated manifest",
			},
		),
		manifestEntities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "manifest_entities",
				Help:      "Number of entities in the last generated manifest",
			},
			[]string{"kind"},
		),

		compileErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compile_errors_total",
				Help:      "Total number of compile errors by class",
			},
			[]string{"class"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations",
			},
			[]string{"policy", "severity"},
		),
		policyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of policy evaluation in seconds",
				Buckets:   buckets,
			},
		),

		watchRebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_rebuilds_total",
				Help:      "Total number of watch-triggered rebuilds",
			},
			[]string{"trigger"},
		),

		pushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pushes_total",
				Help:      "Total number of remote manifest pushes",
			},
			[]string{"host", "status"},
		),
		pushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "push_duration_seconds",
				Help:      "Duration of remote manifest pushes in seconds",
				Buckets:   buckets,
			},
			[]string{"host"},
		),
	}

	registry.MustRegister(
		m.generationsTotal,
		m.generationDuration,
		m.manifestBytes,
		m.manifestEntities,
		m.compileErrors,
		m.policyViolations,
		m.policyDuration,
		m.watchRebuilds,
		m.pushesTotal,
		m.pushDuration,
	)

	return m, nil
}

// RecordGeneration records a completed generation with its status and duration.
func (m *Metrics) RecordGeneration(status string, duration time.Duration) {
	if m.generationsTotal == nil {
		return
	}
	m.generationsTotal.WithLabelValues(status).Inc()
	m.generationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordManifest records the size and entity counts of a generated manifest.
func (m *Metrics) RecordManifest(bytes int, entities map[string]int) {
	if m.manifestBytes == nil {
		return
	}
	m.manifestBytes.Set(float64(bytes))
	for kind, count := range entities {
		m.manifestEntities.WithLabelValues(kind).Set(float64(count))
	}
}

// RecordCompileError records a compile error by class.
func (m *Metrics) RecordCompileError(class string) {
	if m.compileErrors == nil {
		return
	}
	m.compileErrors.WithLabelValues(class).Inc()
}

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// RecordPolicyEvaluation records the duration of a policy evaluation.
func (m *Metrics) RecordPolicyEvaluation(duration time.Duration) {
	if m.policyDuration == nil {
		return
	}
	m.policyDuration.Observe(duration.Seconds())
}

// RecordWatchRebuild records a watch-triggered rebuild.
func (m *Metrics) RecordWatchRebuild(trigger string) {
	if m.watchRebuilds == nil {
		return
	}
	m.watchRebuilds.WithLabelValues(trigger).Inc()
}

// RecordPush records a remote manifest push.
func (m *Metrics) RecordPush(host, status string, duration time.Duration) {
	if m.pushesTotal == nil {
		return
	}
	m.pushesTotal.WithLabelValues(host, status).Inc()
	m.pushDuration.WithLabelValues(host).Observe(duration.Seconds())
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
