package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"creatorpack/internal/api"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
)

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, "", env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, "", env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.DataDir)
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] Running")
	requireContains(t, out, "No jobs")

	if _, err := env.run(t, "jobs", "upload", env.writeMedia(t, "a.mp4"), "--wait"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	out, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "complete")

	env.daemon.Stop()
	out, err = env.run(t, "status")
	if err == nil {
		t.Fatal("expected status to fail with the daemon stopped")
	}
	requireContains(t, out, "Not reachable")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "[OK]")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("CREATORPACK_NTFY_TOPIC", "")
	out, err := env.run(t, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")

	content := `{"msg":"job queued","job_id":"job-a"}
{"msg":"job queued","job_id":"job-b"}
{"msg":"job complete","job_id":"job-a"}
`
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err = env.run(t, "logs", "-n", "1")
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.TrimSpace(out) != `{"msg":"job complete","job_id":"job-a"}` {
		t.Fatalf("unexpected tail %q", out)
	}

	out, err = env.run(t, "logs", "--job", "job-b", "-n", "0")
	if err != nil {
		t.Fatalf("logs --job: %v", err)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected one record for job-b, got %q", out)
	}
	requireContains(t, out, "job-b")
}

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestBuildJobStatsRows(t *testing.T) {
	if rows := buildJobStatsRows(map[string]int{"queued": 0}); rows != nil {
		t.Fatalf("expected no rows for zero counts, got %v", rows)
	}
	rows := buildJobStatsRows(map[string]int{"error": 1, "queued": 2})
	if len(rows) != 2 || rows[0][0] != "queued" || rows[1][0] != "error" {
		t.Fatalf("rows should follow status order, got %v", rows)
	}
}

func TestDaemonStatusLines(t *testing.T) {
	lines := daemonStatusLines(&api.DaemonStatus{
		Running: true,
		PID:     42,
		Workflow: api.WorkflowStatus{
			Running:   false,
			LastError: "boom",
		},
	}, false)
	joined := strings.Join(lines, "\n")
	requireContains(t, joined, "Running (pid 42)")
	requireContains(t, joined, "[WARN] Stopped")
	requireContains(t, joined, "[WARN] boom")
}

func TestColorStatus(t *testing.T) {
	if got := colorStatus(jobs.StatusError, false); got != "error" {
		t.Fatalf("colorStatus = %q", got)
	}
	if got := colorStatus(jobs.StatusComplete, true); !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green complete, got %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		12:               "12 B",
		2048:             "2.0 KiB",
		25 * 1024 * 1024: "25.0 MiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
