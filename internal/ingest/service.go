package ingest

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/language"
	"creatorpack/internal/logging"
	"creatorpack/internal/metrics"
	"creatorpack/internal/services"
	"creatorpack/internal/textutil"
	"creatorpack/internal/youtube"
)

const component = "ingest"

// LookupFailedMessage is logged on a YouTube job when enrichment fails.
const LookupFailedMessage = "Failed to fetch YouTube metadata/transcript."

// StageFailedMessage is recorded on an upload job whose bytes could not be stored.
const StageFailedMessage = "Failed to store the uploaded file."

// Submitter hands a created job to the scheduler without blocking. Reserve
// is called before the job is created and keeps the scheduler from picking
// it up until Submit or Release.
type Submitter interface {
	Reserve(jobID string)
	Submit(jobID string) bool
	Release(jobID string)
}

// MetadataLookup fetches oEmbed metadata and captions for a YouTube video.
// Either result may be empty; an error means the lookup could not complete.
type MetadataLookup interface {
	Lookup(ctx context.Context, videoURL, videoID, language string) (*jobs.Oembed, string, error)
}

// UploadRequest describes an uploaded media file.
type UploadRequest struct {
	OriginalName string `validate:"required,media_ext"`
	Size         int64  `validate:"upload_limit"`
	MimeType     string
	Language     string    `validate:"language_code"`
	PresetID     string    `validate:"omitempty,max=128"`
	Content      io.Reader `validate:"-"`
}

// YouTubeRequest references a YouTube video.
type YouTubeRequest struct {
	URL      string `validate:"required,youtube_url"`
	Language string `validate:"language_code"`
	PresetID string `validate:"omitempty,max=128"`
}

// Service creates jobs and hands them to the scheduler.
type Service struct {
	store           jobs.Store
	submitter       Submitter
	lookup          MetadataLookup
	metrics         *metrics.Registry
	logger          *slog.Logger
	rules           *rules
	defaultLanguage string
	maxUploadBytes  int64
	newID           func() string
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLookup enables YouTube enrichment through lookup.
func WithLookup(lookup MetadataLookup) Option {
	return func(s *Service) { s.lookup = lookup }
}

// WithMetrics counts created jobs.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// WithIDGenerator overrides uuid job ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService builds an ingestion service. submitter may be nil, in which
// case created jobs wait for the scheduler's sweep.
func NewService(cfg *config.Config, store jobs.Store, submitter Submitter, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:           store,
		submitter:       submitter,
		logger:          logging.NewComponentLogger(logger, component),
		rules:           newRules(cfg.Ingest),
		defaultLanguage: cfg.Ingest.DefaultLanguage,
		maxUploadBytes:  cfg.Ingest.MaxUploadBytes,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateUpload validates req, creates an upload job, stages its bytes and
// submits it. Validation failures match services.ErrValidation and carry a
// user-facing message.
func (s *Service) CreateUpload(ctx context.Context, req UploadRequest) (*jobs.Job, error) {
	req.OriginalName = strings.TrimSpace(req.OriginalName)
	req.Language = s.languageOrDefault(req.Language)
	if msg := s.rules.check(req); msg != "" {
		return nil, services.Wrap(services.ErrValidation, component, "create upload", msg, nil)
	}
	if req.Content == nil {
		return nil, services.Wrap(services.ErrValidation, component, "create upload", FileRequiredMessage, nil)
	}
	lang, _ := language.Normalize(req.Language)

	id := s.newID()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	s.reserve(id)
	job, err := s.store.Create(ctx, jobs.NewJob{
		ID:         id,
		SourceType: jobs.SourceUpload,
		Language:   lang,
		PresetID:   strings.TrimSpace(req.PresetID),
		Input: &jobs.UploadInput{
			Filename:     stagingName(req.OriginalName),
			OriginalName: req.OriginalName,
			Size:         req.Size,
			MimeType:     mimeType(req.OriginalName, req.MimeType),
		},
	})
	if err != nil {
		s.release(id)
		return nil, err
	}
	s.metrics.JobCreated(string(jobs.SourceUpload))

	input := job.Input.(*jobs.UploadInput)
	content := req.Content
	if s.maxUploadBytes > 0 {
		content = io.LimitReader(content, s.maxUploadBytes+1)
	}
	staged, err := s.store.StageInput(ctx, id, input.Filename, content)
	if err == nil && s.maxUploadBytes > 0 && staged.Size > s.maxUploadBytes {
		err = services.Wrap(services.ErrValidation, component, "stage upload", s.rules.sizeMsg, nil)
	}
	if err != nil {
		logger.Warn("upload staging failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "upload_stage_failed"),
		)
		message := StageFailedMessage
		if services.Kind(err) == "validation" {
			message = services.UserMessage(err)
		}
		s.abandon(ctx, logger, id, message)
		return nil, err
	}

	job, err = s.store.AppendLog(ctx, id, "Uploaded file "+req.OriginalName)
	if err != nil {
		s.release(id)
		return nil, err
	}
	logger.Info("upload job created",
		logging.String("original_name", req.OriginalName),
		logging.Int64("size_bytes", staged.Size),
		logging.String("sha256", staged.SHA256),
		logging.String(logging.FieldEventType, "job_created"),
	)
	s.submit(logger, id)
	return job, nil
}

// CreateYouTube validates req, creates a YouTube job, attaches whatever
// metadata and captions the lookup returns, and submits it. Lookup failures
// are logged on the job and never fail the request.
func (s *Service) CreateYouTube(ctx context.Context, req YouTubeRequest) (*jobs.Job, error) {
	req.URL = strings.TrimSpace(req.URL)
	req.Language = s.languageOrDefault(req.Language)
	if msg := s.rules.check(req); msg != "" {
		return nil, services.Wrap(services.ErrValidation, component, "create youtube", msg, nil)
	}
	lang, _ := language.Normalize(req.Language)
	videoID, _ := youtube.ExtractVideoID(req.URL)

	id := s.newID()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	s.reserve(id)
	job, err := s.store.Create(ctx, jobs.NewJob{
		ID:         id,
		SourceType: jobs.SourceYouTube,
		Language:   lang,
		PresetID:   strings.TrimSpace(req.PresetID),
		Input:      &jobs.YouTubeInput{URL: req.URL, VideoID: videoID},
	})
	if err != nil {
		s.release(id)
		return nil, err
	}
	s.metrics.JobCreated(string(jobs.SourceYouTube))

	enriched, err := s.enrich(ctx, logger, job)
	if err != nil {
		// The job stays queued; once released the sweep runs it with
		// whatever input was stored.
		s.release(id)
		return nil, err
	}
	if enriched != nil {
		job = enriched
	}

	logger.Info("youtube job created",
		logging.String("video_id", videoID),
		logging.String(logging.FieldEventType, "job_created"),
	)
	s.submit(logger, id)
	return job, nil
}

// enrich runs the metadata lookup and stores what it found. Only store
// errors are returned.
func (s *Service) enrich(ctx context.Context, logger *slog.Logger, job *jobs.Job) (*jobs.Job, error) {
	if s.lookup == nil {
		return nil, nil
	}
	input := job.Input.(*jobs.YouTubeInput)
	meta, transcript, lookupErr := s.lookup.Lookup(ctx, input.URL, input.VideoID, job.Language)

	var updated *jobs.Job
	if meta != nil || strings.TrimSpace(transcript) != "" {
		next := &jobs.YouTubeInput{
			URL:        input.URL,
			VideoID:    input.VideoID,
			Oembed:     meta,
			Transcript: transcript,
		}
		var err error
		updated, err = s.store.Update(ctx, job.ID, jobs.Patch{Input: next})
		if err != nil {
			return nil, err
		}
	}

	if lookupErr != nil {
		logging.WarnWithContext(logger, "youtube lookup failed", "youtube_lookup_failed",
			logging.Error(lookupErr),
			logging.String(logging.FieldImpact, "job continues without metadata or captions"),
		)
		logged, err := s.store.AppendLog(ctx, job.ID, LookupFailedMessage)
		if err != nil {
			return nil, err
		}
		updated = logged
	}
	return updated, nil
}

func (s *Service) reserve(id string) {
	if s.submitter != nil {
		s.submitter.Reserve(id)
	}
}

func (s *Service) release(id string) {
	if s.submitter != nil {
		s.submitter.Release(id)
	}
}

func (s *Service) submit(logger *slog.Logger, id string) {
	if s.submitter == nil {
		return
	}
	if !s.submitter.Submit(id) {
		logger.Debug("job left for sweep", logging.String(logging.FieldEventType, "submit_deferred"))
	}
}

// abandon marks a job that could not be fully ingested as failed so the
// scheduler never picks it up.
func (s *Service) abandon(ctx context.Context, logger *slog.Logger, id, message string) {
	defer s.release(id)
	if _, err := s.store.AppendLog(ctx, id, message); err != nil {
		logger.Warn("failed to log abandoned upload", logging.Error(err))
	}
	if _, err := s.store.Update(ctx, id, jobs.Patch{}.SetError(message)); err != nil {
		logger.Warn("failed to mark abandoned upload", logging.Error(err))
	}
}

func (s *Service) languageOrDefault(value string) string {
	if strings.TrimSpace(value) == "" {
		return s.defaultLanguage
	}
	return value
}

// stagingName returns the on-disk name for an upload. Names that sanitize to
// nothing fall back to "upload" plus the original extension.
func stagingName(original string) string {
	name := textutil.SanitizeFileName(filepath.Base(original))
	if jobs.ValidateName(name) == nil {
		return name
	}
	return "upload" + strings.ToLower(filepath.Ext(original))
}

func mimeType(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}
	return "application/octet-stream"
}

