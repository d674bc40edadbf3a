package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/subtitles"
	"creatorpack/internal/transcript"
)

// Stage names used in logs, metrics, and context.
const (
	StageValidate   = "validate"
	StageTranscribe = "transcribe"
	StageSegment    = "segment"
	StageExport     = "export"
	StageComplete   = "complete"
)

const totalSteps = 5

// runState carries data between steps of one run.
type runState struct {
	job        *jobs.Job
	text       string
	segments   []transcript.Segment
	highlights []transcript.Highlight
}

type step struct {
	name     string
	label    string
	progress int
	run      func(r *Runner, ctx context.Context, logger *slog.Logger, state *runState) error
}

// steps lists every step before completion. Progress is persisted before a
// step's work begins.
var steps = []step{
	{name: StageValidate, label: "validate input", progress: 5, run: (*Runner).validate},
	{name: StageTranscribe, label: "extract/transcribe", progress: 20, run: (*Runner).transcribe},
	{name: StageSegment, label: "segment/highlight", progress: 45, run: (*Runner).segment},
	{name: StageExport, label: "export artifacts", progress: 70, run: (*Runner).export},
}

func stepMessage(index int, label string) string {
	return fmt.Sprintf("Step %d/%d: %s", index, totalSteps, label)
}

// validate re-reads the job so enrichment written after submission is
// visible. YouTube jobs without captions stop here.
func (r *Runner) validate(ctx context.Context, _ *slog.Logger, state *runState) error {
	job, err := r.store.Get(ctx, state.job.ID)
	if err != nil {
		return err
	}
	state.job = job

	switch in := job.Input.(type) {
	case *jobs.UploadInput:
		return nil
	case *jobs.YouTubeInput:
		if !in.HasTranscript() {
			return reject("validate", CaptionsUnavailableMessage)
		}
		return nil
	default:
		return reject("validate", fmt.Sprintf("Unsupported input type %T", job.Input))
	}
}

func (r *Runner) transcribe(ctx context.Context, logger *slog.Logger, state *runState) error {
	switch in := state.job.Input.(type) {
	case *jobs.UploadInput:
		text, err := r.transcriber.Transcribe(ctx, in)
		if err != nil {
			return fmt.Errorf("transcribe %s: %w", in.OriginalName, err)
		}
		state.text = text
	case *jobs.YouTubeInput:
		state.text = in.Transcript
	default:
		return fmt.Errorf("unsupported input %T", state.job.Input)
	}
	logger.Debug("transcript ready", logging.Int("characters", transcript.CharacterCount(state.text)))
	return nil
}

func (r *Runner) segment(_ context.Context, logger *slog.Logger, state *runState) error {
	state.segments = transcript.Split(state.text)
	state.highlights = transcript.Highlights(state.segments, r.highlightCount)
	logger.Debug("transcript segmented",
		logging.Int("segments", len(state.segments)),
		logging.Int("highlights", len(state.highlights)),
	)
	return nil
}

// export writes the manifest, subtitles, and credits in that order. Artifacts
// written before a failure stay registered.
func (r *Runner) export(ctx context.Context, logger *slog.Logger, state *runState) error {
	manifest, err := NewManifest(state.job, state.text, state.highlights, r.now()).Encode()
	if err != nil {
		return err
	}
	body := SubtitleBody(state.segments)
	if issues := subtitles.Validate(body); len(issues) > 0 {
		logging.WarnWithContext(logger, "subtitle validation reported issues", "subtitle_validation",
			logging.String("issues", strings.Join(issues, ",")),
			logging.String(logging.FieldImpact, "subtitles.srt may not load in every player"),
		)
	}
	credits, err := Credits(state.job)
	if err != nil {
		return err
	}

	contents := map[string][]byte{
		ManifestName:  manifest,
		SubtitlesName: []byte(body),
		CreditsName:   []byte(credits),
	}
	for _, name := range ArtifactNames {
		job, err := r.store.WriteArtifact(ctx, state.job.ID, name, contents[name])
		if err != nil {
			return err
		}
		state.job = job
	}
	return nil
}
