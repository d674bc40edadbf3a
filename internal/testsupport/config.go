package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"creatorpack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Stage delays are zeroed, YouTube lookups are disabled, and the API binds an
// ephemeral port. Options apply afterwards.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Pipeline.StepDelayMillis = 0
	cfgVal.Pipeline.SweepIntervalSeconds = 1
	cfgVal.YouTube.LookupEnabled = false
	cfgVal.Store.MinFreeMiB = 0
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStoreBackend selects the job store backend.
func WithStoreBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// WithStepDelay sets the inter-stage pause in milliseconds.
func WithStepDelay(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.StepDelayMillis = millis
	}
}

// WithWorkers sizes the workflow worker pool.
func WithWorkers(workers, queueSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Workers = workers
		b.cfg.Pipeline.QueueSize = queueSize
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithYouTubeEndpoints enables lookups against test servers.
func WithYouTubeEndpoints(oembedURL, timedTextURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.LookupEnabled = true
		b.cfg.YouTube.OembedURL = oembedURL
		b.cfg.YouTube.TimedTextURL = timedTextURL
	}
}

// WithConfigFile writes the config as TOML into the temp directory. Apply it
// after other options; ConfigFile returns the path.
func WithConfigFile() ConfigOption {
	return func(b *configBuilder) {
		data, err := b.cfg.Encode()
		if err != nil {
			b.t.Fatalf("encode config: %v", err)
		}
		if err := os.WriteFile(filepath.Join(b.baseDir, "config.toml"), data, 0o644); err != nil {
			b.t.Fatalf("write config: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// ConfigFile returns the path written by WithConfigFile.
func ConfigFile(cfg *config.Config) string {
	return filepath.Join(BaseDir(cfg), "config.toml")
}
