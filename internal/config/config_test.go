package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"creatorpack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CREATORPACK_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "creatorpack", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.JobsDir() != filepath.Join(wantData, "jobs") {
		t.Fatalf("unexpected jobs dir: %q", cfg.JobsDir())
	}
	if cfg.API.Bind != "127.0.0.1:3001" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.StepDelay() != 650*time.Millisecond {
		t.Fatalf("unexpected step delay: %s", cfg.StepDelay())
	}
	if cfg.Store.Backend != config.StoreBackendFile {
		t.Fatalf("unexpected store backend: %q", cfg.Store.Backend)
	}
	if cfg.Ingest.MaxUploadBytes != 25*1024*1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.Ingest.MaxUploadBytes)
	}
	if len(cfg.Ingest.AllowedExtensions) != 6 {
		t.Fatalf("unexpected extensions: %v", cfg.Ingest.AllowedExtensions)
	}
	if cfg.Pipeline.HighlightCount != 3 {
		t.Fatalf("unexpected highlight count: %d", cfg.Pipeline.HighlightCount)
	}
}

func TestLoadCustomPathNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "custom.toml")
	contents := `
[paths]
data_dir = "~/media/jobs-data"

[store]
backend = " SQLite "

[pipeline]
step_delay_ms = 0
workers = 2

[ingest]
allowed_extensions = ["MP3", ".wav", "mp3", " "]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected custom path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "media", "jobs-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Store.Backend != config.StoreBackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Store.Backend)
	}
	if cfg.StepDelay() != 0 {
		t.Fatalf("expected zero delay, got %s", cfg.StepDelay())
	}
	if got := strings.Join(cfg.Ingest.AllowedExtensions, ","); got != ".mp3,.wav" {
		t.Fatalf("unexpected normalized extensions: %q", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestNtfyTopicFallsBackToEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CREATORPACK_NTFY_TOPIC", " https://ntfy.sh/creator ")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/creator" {
		t.Fatalf("expected topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.Pipeline.StepDelayMillis != defaults.Pipeline.StepDelayMillis {
		t.Fatalf("sample step delay %d differs from default %d", cfg.Pipeline.StepDelayMillis, defaults.Pipeline.StepDelayMillis)
	}
	if cfg.API.Bind != defaults.API.Bind {
		t.Fatalf("sample bind %q differs from default %q", cfg.API.Bind, defaults.API.Bind)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "postgres" }},
		{"negative delay", func(c *config.Config) { c.Pipeline.StepDelayMillis = -1 }},
		{"zero workers", func(c *config.Config) { c.Pipeline.Workers = 0 }},
		{"zero highlights", func(c *config.Config) { c.Pipeline.HighlightCount = 0 }},
		{"unknown transcriber", func(c *config.Config) { c.Pipeline.Transcriber = "whisper" }},
		{"zero upload limit", func(c *config.Config) { c.Ingest.MaxUploadBytes = 0 }},
		{"no extensions", func(c *config.Config) { c.Ingest.AllowedExtensions = nil }},
		{"bad oembed url", func(c *config.Config) { c.YouTube.OembedURL = "ftp://example" }},
		{"zero notify timeout", func(c *config.Config) { c.Notifications.RequestTimeout = 0 }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEncodeIncludesEffectiveValues(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Workers = 7
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "workers = 7") {
		t.Fatalf("expected workers in encoded config:\n%s", data)
	}
}
