package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
	"creatorpack/internal/notifications"
	"creatorpack/internal/services"
)

const component = "pipeline"

// Messages recorded on failed jobs.
const (
	CaptionsUnavailableMessage = "Captions not available. Upload a file instead. This demo does not download YouTube video/audio."
	GenericFailureMessage      = "Processing failed unexpectedly. Check the daemon logs for details."
	ShutdownFailureMessage     = "Processing interrupted by shutdown."
)

// ErrRejected marks a job the pipeline refuses to process, such as a YouTube
// job without captions. Only rejections put their own message on the job.
var ErrRejected = errors.New("job rejected")

func reject(operation, message string) error {
	return fmt.Errorf("%w: %w", ErrRejected, services.Wrap(services.ErrValidation, component, operation, message, nil))
}

// failureWriteTimeout bounds the best-effort write that marks a job failed
// after its context has been cancelled.
const failureWriteTimeout = 5 * time.Second

// Runner executes the job lifecycle against a jobs.Store.
type Runner struct {
	store          jobs.Store
	transcriber    Transcriber
	delay          time.Duration
	highlightCount int
	logger         *slog.Logger
	metrics        *metrics.Registry
	notifier       notifications.Service
	now            func() time.Time
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithTranscriber replaces the transcriber chosen from config.
func WithTranscriber(t Transcriber) Option {
	return func(r *Runner) { r.transcriber = t }
}

// WithMetrics records stage timings and outcomes.
func WithMetrics(reg *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = reg }
}

// WithNotifier sends completion and failure notifications.
func WithNotifier(n notifications.Service) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithClock overrides the time source used for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner builds a Runner from configuration.
func NewRunner(cfg *config.Config, store jobs.Store, logger *slog.Logger, opts ...Option) (*Runner, error) {
	transcriber, err := NewTranscriber(cfg.Pipeline.Transcriber)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		store:          store,
		transcriber:    transcriber,
		delay:          cfg.StepDelay(),
		highlightCount: cfg.Pipeline.HighlightCount,
		logger:         logging.NewComponentLogger(logger, component),
		notifier:       notifications.NewService(cfg),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drives jobID from queued to a terminal state. Jobs that are not queued
// are left untouched. The returned error describes why the job failed; the
// failure itself is already recorded on the job.
func (r *Runner) Run(ctx context.Context, jobID string) (err error) {
	ctx = services.WithJobID(ctx, jobID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, r.logger)

	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != jobs.StatusQueued {
		logger.Debug("skipping job that is not queued", logging.String("status", string(job.Status)))
		return nil
	}
	logger = logger.With(logging.String(logging.FieldSourceType, string(job.SourceType)))

	r.metrics.PipelineStarted()
	defer r.metrics.PipelineDone()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			logger.Error("pipeline panicked",
				logging.Any("panic", rec),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldEventType, "pipeline_panic"),
			)
			r.fail(ctx, logger, job, err)
		}
	}()

	start := time.Now()
	logger.Info("pipeline started", logging.String(logging.FieldEventType, "pipeline_start"))

	state := &runState{job: job}
	if err := r.execute(ctx, logger, state); err != nil {
		r.fail(ctx, logger, state.job, err)
		return err
	}

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("segments", len(state.segments)),
		logging.Duration("duration", time.Since(start)),
	)
	r.metrics.JobFinished(string(jobs.StatusComplete))
	if err := r.notifier.NotifyJobCompleted(ctx, summarize(state.job)); err != nil {
		logging.WarnWithContext(logger, "job completion notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic and connectivity"),
		)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, state *runState) error {
	for i, st := range steps {
		stageCtx := services.WithStage(ctx, st.name)
		stageLogger := logging.WithContext(stageCtx, logger)

		patch := jobs.Patch{}.SetProgress(st.progress)
		if i == 0 {
			patch = patch.SetStatus(jobs.StatusProcessing)
		}
		if _, err := r.store.Update(stageCtx, state.job.ID, patch); err != nil {
			return err
		}
		if _, err := r.store.AppendLog(stageCtx, state.job.ID, stepMessage(i+1, st.label)); err != nil {
			return err
		}
		if err := sleepContext(stageCtx, r.delay); err != nil {
			return err
		}

		stageStart := time.Now()
		stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
		if err := st.run(r, stageCtx, stageLogger, state); err != nil {
			return err
		}
		r.metrics.ObserveStage(st.name, time.Since(stageStart))
		stageLogger.Debug("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}

	completeCtx := services.WithStage(ctx, StageComplete)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.store.Update(completeCtx, state.job.ID, jobs.Patch{}.SetStatus(jobs.StatusComplete).SetProgress(100)); err != nil {
		return err
	}
	job, err := r.store.AppendLog(completeCtx, state.job.ID, stepMessage(totalSteps, "complete"))
	if err != nil {
		logging.WarnWithContext(logger, "failed to append completion log", "log_append_failed", logging.Error(err))
		return nil
	}
	state.job = job
	return nil
}

// fail records err on the job. Rejections carry their own user-facing
// message; everything else, store validation errors included, gets a
// generic one. The write is
// best-effort and survives cancellation of ctx.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *jobs.Job, cause error) {
	message := GenericFailureMessage
	switch {
	case errors.Is(cause, ErrRejected):
		message = services.UserMessage(cause)
	case errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded):
		message = ShutdownFailureMessage
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	if _, err := r.store.AppendLog(writeCtx, job.ID, message); err != nil {
		logger.Warn("failed to append failure log", logging.Error(err))
	}
	updated, err := r.store.Update(writeCtx, job.ID, jobs.Patch{}.SetError(message))
	if err != nil {
		logging.ErrorWithContext(logger, "failed to persist job failure", "job_failure_persist_failed",
			logging.Error(err),
			logging.String("cause", cause.Error()),
			logging.String(logging.FieldErrorHint, "check data directory permissions and free space"),
		)
	} else {
		job = updated
	}

	level := slog.LevelError
	if errors.Is(cause, ErrRejected) {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("error_kind", services.Kind(cause)),
		logging.String("error_message", message),
		logging.Error(cause),
	)

	r.metrics.JobFinished(string(jobs.StatusError))
	if err := r.notifier.NotifyJobFailed(writeCtx, summarize(job), message); err != nil {
		logging.WarnWithContext(logger, "job failure notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic and connectivity"),
		)
	}
}

func summarize(job *jobs.Job) notifications.JobSummary {
	summary := notifications.JobSummary{
		ID:         job.ID,
		SourceType: string(job.SourceType),
		Artifacts:  len(job.Artifacts),
	}
	switch in := job.Input.(type) {
	case *jobs.UploadInput:
		summary.Label = in.OriginalName
	case *jobs.YouTubeInput:
		if in.Oembed != nil && in.Oembed.Title != "" {
			summary.Label = in.Oembed.Title
		} else {
			summary.Label = in.URL
		}
	}
	return summary
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
