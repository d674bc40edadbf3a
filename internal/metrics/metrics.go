package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "creatorpack"

	sourceTypeLabel = "source_type"
	statusLabel     = "status"
	stageLabel      = "stage"
)

var stageBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}

// Registry holds the collectors for one daemon instance.
type Registry struct {
	registry      *prometheus.Registry
	jobsCreated   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	http          *Middleware
}

// NewRegistry builds a registry with job, stage, HTTP, and Go runtime
// collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		jobsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Number of jobs accepted, partitioned by source type.",
		}, []string{sourceTypeLabel}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Number of jobs that reached a terminal status.",
		}, []string{statusLabel}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage, excluding the inter-stage delay.",
			Buckets:   stageBuckets,
		}, []string{stageLabel}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipelines_in_flight",
			Help:      "Number of pipelines currently executing.",
		}),
		http: NewMiddleware(namespace),
	}
	r.registry.MustRegister(
		r.jobsCreated,
		r.jobsFinished,
		r.stageDuration,
		r.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.registry.MustRegister(r.http.Collectors()...)
	return r
}

// JobCreated counts an accepted job.
func (r *Registry) JobCreated(sourceType string) {
	if r == nil {
		return
	}
	r.jobsCreated.WithLabelValues(sourceType).Inc()
}

// JobFinished counts a job reaching a terminal status.
func (r *Registry) JobFinished(status string) {
	if r == nil {
		return
	}
	r.jobsFinished.WithLabelValues(status).Inc()
}

// ObserveStage records how long a stage ran.
func (r *Registry) ObserveStage(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// PipelineStarted and PipelineDone bracket one pipeline execution.
func (r *Registry) PipelineStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

func (r *Registry) PipelineDone() {
	if r == nil {
		return
	}
	r.inFlight.Dec()
}

// Register adds extra collectors, such as a job status collector.
func (r *Registry) Register(cs ...prometheus.Collector) error {
	if r == nil {
		return nil
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// HTTPMiddleware instruments requests routed through chi.
func (r *Registry) HTTPMiddleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return r.http.Handler(next)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry for tests and embedding.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}
