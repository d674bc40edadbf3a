package config

const (
	defaultDataDir              = "~/.local/share/creatorpack/data"
	defaultLogDir               = "~/.local/share/creatorpack/logs"
	defaultStoreBackend         = StoreBackendFile
	defaultStepDelayMillis      = 650
	defaultWorkers              = 4
	defaultQueueSize            = 64
	defaultSweepIntervalSeconds = 5
	defaultHighlightCount       = 3
	defaultTranscriber          = "placeholder"
	defaultMaxUploadBytes       = 25 * 1024 * 1024
	defaultLanguage             = "en"
	defaultOembedURL            = "https://www.youtube.com/oembed"
	defaultTimedTextURL         = "https://video.google.com/timedtext"
	defaultYouTubeTimeout       = 10
	defaultAPIBind              = "127.0.0.1:3001"
	defaultNotifyTimeout        = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultMinFreeMiB           = 256
)

// Store backends understood by jobs.Open.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

var defaultAllowedExtensions = []string{".mp3", ".mp4", ".wav", ".mov", ".m4a", ".webm"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Store: Store{
			Backend:    defaultStoreBackend,
			MinFreeMiB: defaultMinFreeMiB,
		},
		Pipeline: Pipeline{
			StepDelayMillis:      defaultStepDelayMillis,
			Workers:              defaultWorkers,
			QueueSize:            defaultQueueSize,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			HighlightCount:       defaultHighlightCount,
			Transcriber:          defaultTranscriber,
		},
		Ingest: Ingest{
			MaxUploadBytes:    defaultMaxUploadBytes,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
			DefaultLanguage:   defaultLanguage,
		},
		YouTube: YouTube{
			LookupEnabled:    true,
			OembedURL:        defaultOembedURL,
			TimedTextURL:     defaultTimedTextURL,
			FallbackLanguage: defaultLanguage,
			TimeoutSeconds:   defaultYouTubeTimeout,
		},
		API: API{
			Bind:        defaultAPIBind,
			CORSOrigins: []string{"*"},
			Metrics:     true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
