package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"creatorpack/internal/jobs"
	"creatorpack/internal/subtitles"
	"creatorpack/internal/transcript"
)

// Artifact names written by the export step, in write order.
const (
	ManifestName  = "manifest.json"
	SubtitlesName = "subtitles.srt"
	CreditsName   = "credits.txt"
)

// ArtifactNames lists every artifact a completed job carries.
var ArtifactNames = []string{ManifestName, SubtitlesName, CreditsName}

const (
	creditsTitle      = "Infinity Creator Tool - Provenance Report"
	creditsDisclaimer = "Disclaimer: This demo does not download YouTube video/audio and is provided for " +
		"educational purposes. Ensure you have rights to process uploaded media and comply with platform terms of service."
	unknownValue = "Unknown"
)

// manifestTimeLayout renders UTC instants with millisecond precision.
const manifestTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Manifest is the JSON document written as manifest.json. Field order is
// part of the format.
type Manifest struct {
	ID               string                 `json:"id"`
	CreatedAt        string                 `json:"createdAt"`
	SourceType       jobs.SourceType        `json:"sourceType"`
	Language         string                 `json:"language"`
	PresetID         string                 `json:"presetId,omitempty"`
	Source           jobs.Input             `json:"source"`
	TranscriptLength int                    `json:"transcriptLength"`
	Highlights       []transcript.Highlight `json:"highlights"`
	Artifacts        []string               `json:"artifacts"`
	GeneratedAt      string                 `json:"generatedAt"`
}

// NewManifest assembles the manifest for job. transcriptLength counts
// characters of the transcript text.
func NewManifest(job *jobs.Job, transcriptText string, highlights []transcript.Highlight, generatedAt time.Time) Manifest {
	if highlights == nil {
		highlights = []transcript.Highlight{}
	}
	return Manifest{
		ID:               job.ID,
		CreatedAt:        formatManifestTime(job.CreatedAt),
		SourceType:       job.SourceType,
		Language:         job.Language,
		PresetID:         job.PresetID,
		Source:           job.Input,
		TranscriptLength: transcript.CharacterCount(transcriptText),
		Highlights:       highlights,
		Artifacts:        append([]string(nil), ArtifactNames...),
		GeneratedAt:      formatManifestTime(generatedAt),
	}
}

// Encode renders the manifest as two-space indented JSON.
func (m Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

func formatManifestTime(t time.Time) string {
	return t.UTC().Format(manifestTimeLayout)
}

// Credits renders the provenance report. Lines are joined with "\n" and the
// report has no trailing newline.
func Credits(job *jobs.Job) (string, error) {
	lines := []string{
		creditsTitle,
		"Job ID: " + job.ID,
		"Source type: " + string(job.SourceType),
	}
	switch in := job.Input.(type) {
	case *jobs.YouTubeInput:
		meta := jobs.Oembed{}
		if in.Oembed != nil {
			meta = *in.Oembed
		}
		lines = append(lines,
			"YouTube URL: "+in.URL,
			"Title: "+orUnknown(meta.Title),
			"Channel: "+orUnknown(meta.AuthorName),
			"Thumbnail: "+orUnknown(meta.ThumbnailURL),
		)
	case *jobs.UploadInput:
		lines = append(lines, "Original filename: "+in.OriginalName)
	default:
		return "", fmt.Errorf("unsupported input %T", job.Input)
	}
	lines = append(lines, creditsDisclaimer)
	return strings.Join(lines, "\n"), nil
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return unknownValue
	}
	return value
}

// SubtitleBody renders segments as SRT cues.
func SubtitleBody(segments []transcript.Segment) string {
	cues := make([]subtitles.Cue, 0, len(segments))
	for _, seg := range segments {
		cues = append(cues, subtitles.Cue{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return subtitles.Body(cues)
}
