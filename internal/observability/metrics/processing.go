package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

// ProcessingMetrics records scheduler activity. It satisfies processing.Observer.
type ProcessingMetrics struct {
	registry *prometheus.Registry
	service  string

	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	queueWait    *prometheus.HistogramVec
	backlogDepth prometheus.Gauge
	activeJobs   prometheus.Gauge
}

// NewProcessingMetrics registers into registry, or into a private one when
// registry is nil.
func NewProcessingMetrics(service string, registry *prometheus.Registry) *ProcessingMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fp",
			Subsystem: "processing",
			Name:      "jobs_total",
			Help:      "Total finished processing jobs by analysis kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fp",
			Subsystem: "processing",
			Name:      "job_duration_seconds",
			Help:      "Analyzer run time in seconds by analysis kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind"},
	)
	queueWait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fp",
			Subsystem: "processing",
			Name:      "queue_wait_seconds",
			Help:      "Delay between submission and analyzer start.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "kind"},
	)
	backlogDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "fp",
			Subsystem:   "processing",
			Name:        "backlog_jobs",
			Help:        "Number of jobs waiting for a free slot.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	activeJobs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "fp",
			Subsystem:   "processing",
			Name:        "active_jobs",
			Help:        "Number of analyzers currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(jobsTotal, jobDuration, queueWait, backlogDepth, activeJobs)

	return &ProcessingMetrics{
		registry:     registry,
		service:      service,
		jobsTotal:    jobsTotal,
		jobDuration:  jobDuration,
		queueWait:    queueWait,
		backlogDepth: backlogDepth,
		activeJobs:   activeJobs,
	}
}

func (m *ProcessingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ProcessingMetrics) JobStarted(kind domain.AnalysisKind, wait time.Duration) {
	if wait < 0 {
		wait = 0
	}
	m.queueWait.WithLabelValues(m.service, string(kind)).Observe(wait.Seconds())
}

func (m *ProcessingMetrics) JobFinished(kind domain.AnalysisKind, status domain.ResultStatus, duration time.Duration) {
	m.jobsTotal.WithLabelValues(m.service, string(kind), string(status)).Inc()
	m.jobDuration.WithLabelValues(m.service, string(kind)).Observe(duration.Seconds())
}

func (m *ProcessingMetrics) BacklogChanged(queued, active int) {
	m.backlogDepth.Set(float64(queued))
	m.activeJobs.Set(float64(active))
}
