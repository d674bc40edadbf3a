package workflow

import (
	"context"
	"errors"
	"time"

	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/pipeline"
)

// InterruptedMessage is recorded on jobs found in processing at startup.
const InterruptedMessage = "Processing interrupted by a daemon restart."

// Start recovers interrupted jobs, then launches the workers and the sweep
// loop. It returns once background processing is running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.mu.Unlock()

	if _, err := m.Recover(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(m.workers + 1)
	for i := 0; i < m.workers; i++ {
		go m.worker(runCtx)
	}
	go m.sweepLoop(runCtx)

	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.Duration("sweep_interval", m.sweepInterval),
	)
	return nil
}

// Stop cancels in-flight pipelines and waits for workers to exit. Running
// jobs are marked failed by their runner; jobs still waiting in the hand-off
// buffer stay queued for the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.inFlight = make(map[string]struct{})
	m.mu.Unlock()
	for {
		select {
		case <-m.queue:
		default:
			return
		}
	}
}

// Reserve claims jobID for a caller that is still creating it. The sweep
// loop skips reserved jobs until Submit or Release is called, so a job is
// never run before its creator has finished writing its input.
func (m *Manager) Reserve(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved[jobID] = struct{}{}
}

// Release drops a reservation without scheduling the job.
func (m *Manager) Release(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, jobID)
}

// Submit releases any reservation on jobID and schedules it without
// blocking. It returns false when the job is already scheduled or the
// hand-off buffer is full; the sweep loop picks up such jobs later.
func (m *Manager) Submit(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, jobID)
	return m.enqueueLocked(jobID)
}

func (m *Manager) enqueueLocked(jobID string) bool {
	if _, ok := m.inFlight[jobID]; ok {
		return false
	}
	select {
	case m.queue <- jobID:
		m.inFlight[jobID] = struct{}{}
		return true
	default:
		m.logger.Debug("hand-off buffer full; deferring job to sweep", logging.String(logging.FieldJobID, jobID))
		return false
	}
}

// Recover marks jobs left in processing by a previous process as failed.
// It must run before any worker starts.
func (m *Manager) Recover(ctx context.Context) (int, error) {
	list, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, job := range list {
		if job.Status != jobs.StatusProcessing {
			continue
		}
		if _, err := m.store.AppendLog(ctx, job.ID, InterruptedMessage); err != nil {
			return recovered, err
		}
		if _, err := m.store.Update(ctx, job.ID, jobs.Patch{}.SetError(InterruptedMessage)); err != nil {
			return recovered, err
		}
		recovered++
		logging.WarnWithContext(m.logger, "recovered interrupted job", "job_recovered",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("progress", job.Progress),
			logging.String(logging.FieldImpact, "job marked failed; resubmit the source"),
		)
	}
	return recovered, nil
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(ctx context.Context, jobID string) {
	m.mu.Lock()
	m.active++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.finished++
		m.lastJob = jobID
		delete(m.inFlight, jobID)
		m.mu.Unlock()
	}()

	err := m.runner.Run(ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		m.logger.Debug("job interrupted by shutdown", logging.String(logging.FieldJobID, jobID))
	case errors.Is(err, pipeline.ErrRejected):
		m.logger.Info("job rejected", logging.String(logging.FieldJobID, jobID), logging.Error(err))
	default:
		m.setLastError(err)
		m.logger.Warn("job failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldErrorHint, "inspect the job log with creatorpack jobs logs"),
		)
	}
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()
	m.sweep(ctx)
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep submits every queued job not already scheduled or reserved, oldest
// first.
func (m *Manager) sweep(ctx context.Context) {
	list, err := m.store.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.setLastError(err)
		m.logger.Error("failed to list jobs for sweep",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sweep_failed"),
			logging.String(logging.FieldErrorHint, "check data directory access"),
		)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Status != jobs.StatusQueued {
			continue
		}
		if _, ok := m.reserved[list[i].ID]; ok {
			continue
		}
		m.enqueueLocked(list[i].ID)
	}
}
