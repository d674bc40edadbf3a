package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"creatorpack/internal/config"
	"creatorpack/internal/daemon"
	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
	"creatorpack/internal/notifications"
	"creatorpack/internal/pipeline"
	"creatorpack/internal/workflow"
	"creatorpack/internal/youtube"
)

// PIDFileName is written into the log directory while the daemon runs.
const PIDFileName = "creatorpackd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the creatorpack daemon and blocks until the context is
// cancelled or SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data directory and that no other creatorpackd is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("creatorpack daemon shutting down")
	return nil
}

// Build wires the job store, pipeline, workflow manager, ingestion, and API
// into a daemon. The caller owns the returned daemon and must Close it.
func Build(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := jobs.Open(cfg, logger)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return nil, err
	}

	reg := metrics.NewRegistry()
	if err := reg.Register(metrics.NewJobStatusCollector(store, logger)); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	notifier := notifications.NewService(cfg)
	runner, err := pipeline.NewRunner(cfg, store, logger,
		pipeline.WithMetrics(reg),
		pipeline.WithNotifier(notifier),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	manager := workflow.NewManager(cfg, store, runner, logger)

	ingestOpts := []ingest.Option{ingest.WithMetrics(reg)}
	if cfg.YouTube.LookupEnabled {
		client, err := youtube.New(cfg.YouTube)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("create youtube client: %w", err)
		}
		ingestOpts = append(ingestOpts, ingest.WithLookup(client))
	}
	service := ingest.NewService(cfg, store, manager, logger, ingestOpts...)

	d, err := daemon.New(cfg, daemon.Deps{
		Store:    store,
		Workflow: manager,
		Ingest:   service,
		Metrics:  reg,
		Notifier: notifier,
	}, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded by a running daemon, or 0 when none is recorded.
func ReadPID(cfg *config.Config) int {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, PIDFileName))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("store_backend", cfg.Store.Backend),
		logging.String("api_bind", cfg.API.Bind),
		logging.Int("workers", cfg.Pipeline.Workers),
		logging.Duration("step_delay", cfg.StepDelay()),
		logging.String("transcriber", cfg.Pipeline.Transcriber),
		logging.Bool("youtube_lookup", cfg.YouTube.LookupEnabled),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
