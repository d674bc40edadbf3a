package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizePipeline()
	c.normalizeIngest()
	c.normalizeYouTube()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Transcriber = strings.ToLower(strings.TrimSpace(c.Pipeline.Transcriber))
	if c.Pipeline.Transcriber == "" {
		c.Pipeline.Transcriber = defaultTranscriber
	}
}

func (c *Config) normalizeIngest() {
	normalized := make([]string, 0, len(c.Ingest.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Ingest.AllowedExtensions))
	for _, ext := range c.Ingest.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	c.Ingest.AllowedExtensions = normalized
	c.Ingest.DefaultLanguage = strings.TrimSpace(c.Ingest.DefaultLanguage)
	if c.Ingest.DefaultLanguage == "" {
		c.Ingest.DefaultLanguage = defaultLanguage
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.OembedURL = strings.TrimSpace(c.YouTube.OembedURL)
	if c.YouTube.OembedURL == "" {
		c.YouTube.OembedURL = defaultOembedURL
	}
	c.YouTube.TimedTextURL = strings.TrimSpace(c.YouTube.TimedTextURL)
	if c.YouTube.TimedTextURL == "" {
		c.YouTube.TimedTextURL = defaultTimedTextURL
	}
	c.YouTube.FallbackLanguage = strings.TrimSpace(c.YouTube.FallbackLanguage)
	if c.YouTube.FallbackLanguage == "" {
		c.YouTube.FallbackLanguage = defaultLanguage
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	origins := c.API.CORSOrigins[:0]
	for _, origin := range c.API.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.API.CORSOrigins = origins
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CREATORPACK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
