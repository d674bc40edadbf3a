package ingest_test

import (
	"context"
	"testing"
	"time"

	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/pipeline"
	"creatorpack/internal/testsupport"
	"creatorpack/internal/workflow"
)

// slowLookup returns captions only after the scheduler has had a chance to
// sweep at least once.
type slowLookup struct {
	delay time.Duration
}

func (s slowLookup) Lookup(ctx context.Context, _, _, _ string) (*jobs.Oembed, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-time.After(s.delay):
	}
	return &jobs.Oembed{Title: "Slow"}, "first line. second line. third line.", nil
}

func TestSlowLookupJobIsNotRunBeforeEnrichment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner, err := pipeline.NewRunner(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	mgr := workflow.NewManager(cfg, store, runner, logging.NewNop())
	t.Cleanup(mgr.Stop)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	lookup := slowLookup{delay: cfg.SweepInterval() + 500*time.Millisecond}
	svc := ingest.NewService(cfg, store, mgr, logging.NewNop(), ingest.WithLookup(lookup))
	job, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{URL: "https://youtu.be/slow123"})
	if err != nil {
		t.Fatalf("CreateYouTube: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := store.Get(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status.IsTerminal() {
			if got.Status != jobs.StatusComplete {
				t.Fatalf("status = %s (%q), want complete", got.Status, got.ErrorMessage)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %s after deadline", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
