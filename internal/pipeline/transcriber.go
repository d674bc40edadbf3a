package pipeline

import (
	"context"
	"fmt"
	"strings"

	"creatorpack/internal/jobs"
)

// Transcriber produces transcript text for an uploaded file.
type Transcriber interface {
	Transcribe(ctx context.Context, input *jobs.UploadInput) (string, error)
}

// TranscriberPlaceholder is the config name of PlaceholderTranscriber.
const TranscriberPlaceholder = "placeholder"

// PlaceholderTranscriber stands in for speech-to-text. Its output depends
// only on the original filename.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Transcribe(_ context.Context, input *jobs.UploadInput) (string, error) {
	return PlaceholderTranscript(input.OriginalName), nil
}

// PlaceholderTranscript returns the stand-in transcript for originalName.
func PlaceholderTranscript(originalName string) string {
	return fmt.Sprintf("Demo transcript for %s. This placeholder transcript simulates spoken content, "+
		"highlighting key points about infinity creator workflows, branding, and export artifacts.", originalName)
}

// NewTranscriber resolves a transcriber by config name.
func NewTranscriber(name string) (Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case TranscriberPlaceholder, "":
		return PlaceholderTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q", name)
	}
}
