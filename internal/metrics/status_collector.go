package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
)

// StatsSource reports job counts per status.
type StatsSource interface {
	Stats(ctx context.Context) (map[jobs.Status]int, error)
}

type jobStatusCollector struct {
	source StatsSource
	logger *slog.Logger
	jobs   *prometheus.Desc
}

// NewJobStatusCollector reads job counts from source at scrape time.
func NewJobStatusCollector(source StatsSource, logger *slog.Logger) prometheus.Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &jobStatusCollector{
		source: source,
		logger: logger,
		jobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "jobs"),
			"Number of stored jobs in each status.",
			[]string{statusLabel},
			nil,
		),
	}
}

func (c *jobStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobs
}

func (c *jobStatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stats, err := c.source.Stats(ctx)
	if err != nil {
		c.logger.Warn("collect job statistics failed", logging.Error(err))
		return
	}
	for _, status := range jobs.AllStatuses() {
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.GaugeValue, float64(stats[status]), string(status))
	}
}
