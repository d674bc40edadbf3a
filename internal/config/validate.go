package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", StoreBackendFile, StoreBackendSQLite, c.Store.Backend)
	}
	if c.Store.MinFreeMiB < 0 {
		return errors.New("store.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.StepDelayMillis < 0 {
		return errors.New("pipeline.step_delay_ms must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"pipeline.workers":                c.Pipeline.Workers,
		"pipeline.queue_size":             c.Pipeline.QueueSize,
		"pipeline.sweep_interval_seconds": c.Pipeline.SweepIntervalSeconds,
		"pipeline.highlight_count":        c.Pipeline.HighlightCount,
	}); err != nil {
		return err
	}
	if c.Pipeline.Transcriber != defaultTranscriber {
		return fmt.Errorf("pipeline.transcriber %q is not supported", c.Pipeline.Transcriber)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.MaxUploadBytes <= 0 {
		return errors.New("ingest.max_upload_bytes must be positive")
	}
	if len(c.Ingest.AllowedExtensions) == 0 {
		return errors.New("ingest.allowed_extensions must list at least one extension")
	}
	return nil
}

func (c *Config) validateYouTube() error {
	if !c.YouTube.LookupEnabled {
		return nil
	}
	if c.YouTube.TimeoutSeconds <= 0 {
		return errors.New("youtube.timeout_seconds must be positive")
	}
	for key, value := range map[string]string{
		"youtube.oembed_url":    c.YouTube.OembedURL,
		"youtube.timedtext_url": c.YouTube.TimedTextURL,
	} {
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%s must be an http(s) URL", key)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
