package workflow_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/pipeline"
	"creatorpack/internal/testsupport"
	"creatorpack/internal/workflow"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func allInStatus(t *testing.T, store jobs.Store, ids []string, status jobs.Status) func() bool {
	return func() bool {
		for _, id := range ids {
			job, err := store.Get(context.Background(), id)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if job.Status != status {
				return false
			}
		}
		return true
	}
}

func newPipelineManager(t *testing.T, cfg *config.Config, store jobs.Store) *workflow.Manager {
	t.Helper()
	runner, err := pipeline.NewRunner(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	mgr := workflow.NewManager(cfg, store, runner, logging.NewNop())
	t.Cleanup(mgr.Stop)
	return mgr
}

func TestSubmittedJobsComplete(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2, 8))
	store := testsupport.MustOpenStore(t, cfg)
	mgr := newPipelineManager(t, cfg, store)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var ids []string
	for _, name := range []string{"a.mp3", "b.wav", "c.mp4"} {
		job := testsupport.NewUploadJob(t, store, name)
		ids = append(ids, job.ID)
		mgr.Submit(job.ID)
	}
	failed := testsupport.NewYouTubeJob(t, store, "")
	mgr.Submit(failed.ID)

	waitFor(t, "uploads to complete", allInStatus(t, store, ids, jobs.StatusComplete))
	waitFor(t, "captionless job to fail", allInStatus(t, store, []string{failed.ID}, jobs.StatusError))

	summary := mgr.Status(context.Background())
	if !summary.Running || summary.Workers != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.JobStats[jobs.StatusComplete] != 3 || summary.JobStats[jobs.StatusError] != 1 {
		t.Fatalf("unexpected job stats %+v", summary.JobStats)
	}
	if summary.LastError != "" {
		t.Fatalf("validation failures should not be recorded as workflow errors: %q", summary.LastError)
	}
}

func TestSweepPicksUpUnsubmittedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, testsupport.NewUploadJob(t, store, "queued.mp3").ID)
	}

	mgr := newPipelineManager(t, cfg, store)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "swept jobs to complete", allInStatus(t, store, ids, jobs.StatusComplete))
}

func TestSweepSkipsReservedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := &fakeRunner{}
	mgr := workflow.NewManager(cfg, store, runner, logging.NewNop())
	t.Cleanup(mgr.Stop)

	held := testsupport.NewUploadJob(t, store, "held.mp3")
	dropped := testsupport.NewUploadJob(t, store, "dropped.mp3")
	mgr.Reserve(held.ID)
	mgr.Reserve(dropped.ID)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Start sweeps once immediately; wait past the next tick as well.
	time.Sleep(cfg.SweepInterval() + 200*time.Millisecond)
	if n := runner.count(); n != 0 {
		t.Fatalf("reserved jobs ran %d times before submission", n)
	}

	mgr.Release(dropped.ID)
	if !mgr.Submit(held.ID) {
		t.Fatal("expected reserved job to be accepted on Submit")
	}
	waitFor(t, "both jobs to run", func() bool {
		return runner.saw(held.ID) && runner.saw(dropped.ID)
	})
}

type fakeRunner struct {
	mu        sync.Mutex
	active    int
	maxActive int
	ran       []string
	hold      time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, jobID string) error {
	f.mu.Lock()
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.ran = append(f.ran, jobID)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.hold):
		return nil
	}
}

func (f *fakeRunner) saw(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.ran, id)
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2, 16))
	store := testsupport.MustOpenStore(t, cfg)
	runner := &fakeRunner{hold: 30 * time.Millisecond}
	mgr := workflow.NewManager(cfg, store, runner, logging.NewNop())
	t.Cleanup(mgr.Stop)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, id := range []string{"j1", "j2", "j3", "j4", "j5", "j6"} {
		if !mgr.Submit(id) {
			t.Fatalf("Submit(%s) rejected", id)
		}
	}
	waitFor(t, "fake jobs to run", func() bool { return runner.count() == 6 })
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.maxActive > 2 {
		t.Fatalf("expected at most 2 concurrent runs, saw %d", runner.maxActive)
	}
}

func TestSubmitIsNonBlockingAndDeduplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1, 1))
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, &fakeRunner{}, logging.NewNop())

	if !mgr.Submit("first") {
		t.Fatal("expected first submission to be accepted")
	}
	if mgr.Submit("first") {
		t.Fatal("expected duplicate submission to be rejected")
	}
	done := make(chan bool, 1)
	go func() { done <- mgr.Submit("second") }()
	select {
	case accepted := <-done:
		if accepted {
			t.Fatal("expected full buffer to reject submission")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full buffer")
	}
	if got := mgr.Status(context.Background()).Pending; got != 1 {
		t.Fatalf("expected 1 pending job, got %d", got)
	}
}

func TestStartRecoversInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewUploadJob(t, store, "stuck.mp3")
	if _, err := store.Update(context.Background(), job.ID, jobs.Patch{}.SetStatus(jobs.StatusProcessing).SetProgress(45)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	mgr := workflow.NewManager(cfg, store, &fakeRunner{}, logging.NewNop())
	t.Cleanup(mgr.Stop)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != jobs.StatusError || got.Progress != 100 || got.ErrorMessage != workflow.InterruptedMessage {
		t.Fatalf("expected recovered failure, got %s/%d %q", got.Status, got.Progress, got.ErrorMessage)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestStopCancelsRunningJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1, 4))
	store := testsupport.MustOpenStore(t, cfg)
	runner := &fakeRunner{hold: time.Hour}
	mgr := workflow.NewManager(cfg, store, runner, logging.NewNop())
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mgr.Submit("long")
	waitFor(t, "job to start", func() bool { return runner.count() == 1 })

	stopped := make(chan struct{})
	go func() {
		mgr.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if mgr.Status(context.Background()).Running {
		t.Fatal("expected manager to report stopped")
	}
}
