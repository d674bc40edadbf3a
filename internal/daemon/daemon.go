package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"creatorpack/internal/api"
	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
	"creatorpack/internal/notifications"
	"creatorpack/internal/preflight"
	"creatorpack/internal/workflow"
)

// Deps are the collaborators the daemon coordinates. Store, Workflow and
// Ingest are required.
type Deps struct {
	Store    jobs.Store
	Workflow *workflow.Manager
	Ingest   api.Ingester
	Metrics  *metrics.Registry
	Notifier notifications.Service
}

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    jobs.Store
	workflow *workflow.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	StoreBackend string
	DataDir      string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Workflow == nil || deps.Ingest == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, ingest service, and logger")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    deps.Store,
		workflow: deps.Workflow,
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, api.Options{
		Store:          deps.Store,
		Ingest:         deps.Ingest,
		Status:         d.apiStatus,
		Metrics:        deps.Metrics,
		ExposeMetrics:  cfg.API.Metrics,
		Logger:         logger,
		CORSOrigins:    cfg.API.CORSOrigins,
		MaxUploadBytes: cfg.Ingest.MaxUploadBytes,
	}, logger)
	return d, nil
}

// Start acquires the daemon lock, checks the data directory, and launches
// the workflow manager and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another creatorpackd instance is already running")
	}

	if check := preflight.CheckDataDir(d.cfg.Paths.DataDir, d.cfg.MinFreeBytes()); !check.Passed {
		_ = d.lock.Unlock()
		return fmt.Errorf("preflight %s: %s", strings.ToLower(check.Name), check.Detail)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("creatorpack daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String("store_backend", d.cfg.Store.Backend),
	)
	return nil
}

// Stop shuts the API down, stops background processing, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("creatorpack daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// APIAddress returns the address the API listens on, or "" before Start.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		StoreBackend: d.cfg.Store.Backend,
		DataDir:      d.cfg.Paths.DataDir,
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
	}
}

func (d *Daemon) apiStatus(ctx context.Context) api.DaemonStatus {
	status := d.Status(ctx)
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StoreBackend: status.StoreBackend,
		DataDir:      status.DataDir,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
	}
}
