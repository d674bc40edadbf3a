package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
)

// JobRunner drives one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// Manager coordinates job execution across a fixed worker pool.
type Manager struct {
	store  jobs.Store
	runner JobRunner
	logger *slog.Logger

	workers       int
	sweepInterval time.Duration
	queue         chan string

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight map[string]struct{}
	reserved map[string]struct{}
	active   int
	lastErr  error
	lastJob  string
	finished int
}

// NewManager constructs a workflow manager sized from cfg.Pipeline.
func NewManager(cfg *config.Config, store jobs.Store, runner JobRunner, logger *slog.Logger) *Manager {
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.Pipeline.QueueSize
	if queueSize <= 0 {
		queueSize = workers
	}
	sweep := cfg.SweepInterval()
	if sweep <= 0 {
		sweep = 5 * time.Second
	}
	return &Manager{
		store:         store,
		runner:        runner,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		workers:       workers,
		sweepInterval: sweep,
		queue:         make(chan string, queueSize),
		inFlight:      make(map[string]struct{}),
		reserved:      make(map[string]struct{}),
	}
}
