package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
)

// MustOpenStore opens the configured jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewUploadJob creates a queued upload job for originalName.
func NewUploadJob(t testing.TB, store jobs.Store, originalName string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.NewJob{
		ID:         uuid.NewString(),
		SourceType: jobs.SourceUpload,
		Language:   "en",
		Input: &jobs.UploadInput{
			Filename:     "upload-" + originalName,
			OriginalName: originalName,
			Size:         1024,
			MimeType:     "audio/mpeg",
		},
	})
	if err != nil {
		t.Fatalf("store.Create upload: %v", err)
	}
	return job
}

// NewYouTubeJob creates a queued YouTube job with the given transcript, which
// may be empty.
func NewYouTubeJob(t testing.TB, store jobs.Store, transcript string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.NewJob{
		ID:         uuid.NewString(),
		SourceType: jobs.SourceYouTube,
		Language:   "en",
		Input: &jobs.YouTubeInput{
			URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			VideoID:    "dQw4w9WgXcQ",
			Transcript: transcript,
		},
	})
	if err != nil {
		t.Fatalf("store.Create youtube: %v", err)
	}
	return job
}
