package daemon_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"creatorpack/internal/api"
	"creatorpack/internal/config"
	"creatorpack/internal/daemon"
	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
	"creatorpack/internal/pipeline"
	"creatorpack/internal/testsupport"
	"creatorpack/internal/workflow"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	store, err := jobs.Open(cfg, logger)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	reg := metrics.NewRegistry()
	runner, err := pipeline.NewRunner(cfg, store, logger, pipeline.WithMetrics(reg))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	mgr := workflow.NewManager(cfg, store, runner, logger)
	svc := ingest.NewService(cfg, store, mgr, logger, ingest.WithMetrics(reg))

	d, err := daemon.New(cfg, daemon.Deps{
		Store:    store,
		Workflow: mgr,
		Ingest:   svc,
		Metrics:  reg,
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and workflow running: %+v", status)
	}
	if status.APIAddress == "" {
		t.Fatal("expected API address after start")
	}
	if status.LockFilePath != filepath.Join(cfg.Paths.LogDir, "creatorpackd.lock") {
		t.Fatalf("lock path = %q", status.LockFilePath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.APIAddress != "" {
		t.Fatalf("expected daemon to be stopped: %+v", status)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	secondCfg := *cfg
	secondCfg.Store.Backend = config.StoreBackendSQLite
	second := newDaemon(t, &secondCfg)
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("second Start error = %v, want already running", err)
	}
}

func TestDaemonRefusesUnusableDataDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.MinFreeMiB = 1 << 40
	d := newDaemon(t, cfg)

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("Start error = %v, want preflight failure", err)
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should not be running")
	}
}

func TestDaemonProcessesJobsEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	client := api.NewClient("http://" + d.APIAddress())
	path := filepath.Join(t.TempDir(), "demo.mp3")
	testsupport.WriteFile(t, path, 2048)
	id, err := client.UploadFile(ctx, path, "en", "")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	var job *jobs.Job
	for time.Now().Before(deadline) {
		job, err = client.GetJob(ctx, id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if job.Status.IsTerminal() {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if job.Status != jobs.StatusComplete || job.Progress != 100 {
		t.Fatalf("job = %s/%d, want complete/100 (error %q)", job.Status, job.Progress, job.ErrorMessage)
	}
	if len(job.Artifacts) != 3 {
		t.Fatalf("artifacts = %v, want 3", job.Artifacts)
	}

	var credits strings.Builder
	if _, err := client.DownloadArtifact(ctx, id, pipeline.CreditsName, &credits); err != nil {
		t.Fatalf("DownloadArtifact: %v", err)
	}
	if !strings.Contains(credits.String(), "demo.mp3") {
		t.Fatalf("credits missing original name:\n%s", credits.String())
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Workflow.JobStats["complete"] != 1 {
		t.Fatalf("job stats = %v", status.Workflow.JobStats)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("TestNotification = %v, %q, %v", sent, message, err)
	}
}
