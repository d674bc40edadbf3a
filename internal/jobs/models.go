package jobs

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Status tracks where a job sits in its lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

var allStatuses = []Status{StatusQueued, StatusProcessing, StatusComplete, StatusError}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status, returning false when unknown.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// canTransition enforces queued -> processing -> {complete|error}, with error
// reachable from any non-terminal state. Terminal states never transition,
// not even to themselves.
func (s Status) canTransition(next Status) bool {
	if s == next {
		return !s.IsTerminal()
	}
	switch s {
	case StatusQueued:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusComplete || next == StatusError
	default:
		return false
	}
}

// SourceType identifies the kind of media a job was created from.
type SourceType string

const (
	SourceUpload  SourceType = "upload"
	SourceYouTube SourceType = "youtube"
)

// ParseSourceType converts a string into a SourceType, returning false when unknown.
func ParseSourceType(value string) (SourceType, bool) {
	switch SourceType(strings.ToLower(strings.TrimSpace(value))) {
	case SourceUpload:
		return SourceUpload, true
	case SourceYouTube:
		return SourceYouTube, true
	default:
		return "", false
	}
}

// Input is the source payload of a job. The concrete type is fixed by the
// job's SourceType: *UploadInput for uploads and *YouTubeInput for YouTube
// references. Consumers switch on the concrete type.
type Input interface {
	SourceType() SourceType
	clone() Input
}

// UploadInput describes a file staged under the job's input directory.
type UploadInput struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

func (*UploadInput) SourceType() SourceType { return SourceUpload }

func (in *UploadInput) clone() Input {
	cp := *in
	return &cp
}

// Oembed carries the subset of YouTube oEmbed metadata kept on a job.
type Oembed struct {
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorURL    string `json:"author_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// YouTubeInput references a YouTube video. Oembed and Transcript are filled
// in by enrichment after the job is created and may remain empty.
type YouTubeInput struct {
	URL        string  `json:"url"`
	VideoID    string  `json:"videoId"`
	Oembed     *Oembed `json:"oembed,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
}

func (*YouTubeInput) SourceType() SourceType { return SourceYouTube }

func (in *YouTubeInput) clone() Input {
	cp := *in
	if in.Oembed != nil {
		meta := *in.Oembed
		cp.Oembed = &meta
	}
	return &cp
}

// HasTranscript reports whether captions with visible text are attached.
func (in *YouTubeInput) HasTranscript() bool {
	return strings.TrimSpace(in.Transcript) != ""
}

// Job is one processing request and its accumulated state.
type Job struct {
	ID           string
	Status       Status
	Progress     int
	SourceType   SourceType
	Language     string
	PresetID     string
	Input        Input
	Logs         []string
	Artifacts    map[string]string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	if j.Input != nil {
		cp.Input = j.Input.clone()
	}
	cp.Logs = append([]string(nil), j.Logs...)
	cp.Artifacts = maps.Clone(j.Artifacts)
	if cp.Artifacts == nil {
		cp.Artifacts = map[string]string{}
	}
	return &cp
}

// ArtifactNames returns registered artifact names in sorted order.
func (j *Job) ArtifactNames() []string {
	names := make([]string, 0, len(j.Artifacts))
	for name := range j.Artifacts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewJob holds the immutable fields supplied when a job is created.
type NewJob struct {
	ID         string
	SourceType SourceType
	Language   string
	PresetID   string
	Input      Input
}

func (n NewJob) validate() error {
	if err := ValidateID(n.ID); err != nil {
		return err
	}
	if _, ok := ParseSourceType(string(n.SourceType)); !ok {
		return fmt.Errorf("unknown source type %q", n.SourceType)
	}
	if strings.TrimSpace(n.Language) == "" {
		return fmt.Errorf("language is required")
	}
	return checkInput(n.SourceType, n.Input)
}

func (n NewJob) build(now time.Time) *Job {
	return &Job{
		ID:         n.ID,
		Status:     StatusQueued,
		Progress:   0,
		SourceType: n.SourceType,
		Language:   strings.TrimSpace(n.Language),
		PresetID:   strings.TrimSpace(n.PresetID),
		Input:      n.Input.clone(),
		Logs:       []string{},
		Artifacts:  map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func checkInput(sourceType SourceType, input Input) error {
	switch in := input.(type) {
	case *UploadInput:
		if in == nil {
			return fmt.Errorf("input is required")
		}
	case *YouTubeInput:
		if in == nil {
			return fmt.Errorf("input is required")
		}
	case nil:
		return fmt.Errorf("input is required")
	default:
		return fmt.Errorf("unsupported input type %T", input)
	}
	if input.SourceType() != sourceType {
		return fmt.Errorf("input variant %q does not match source type %q", input.SourceType(), sourceType)
	}
	return nil
}

// recordTimeLayout keeps stored timestamps fixed-width so they sort lexically.
const recordTimeLayout = "2006-01-02T15:04:05.000000000Z"

type jobRecord struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	Progress     int               `json:"progress"`
	CreatedAt    string            `json:"createdAt"`
	UpdatedAt    string            `json:"updatedAt"`
	SourceType   SourceType        `json:"sourceType"`
	Language     string            `json:"language"`
	PresetID     string            `json:"presetId,omitempty"`
	Input        json.RawMessage   `json:"input"`
	Logs         []string          `json:"logs"`
	Artifacts    map[string]string `json:"artifacts"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// MarshalJSON renders the job with camelCase keys and the input payload
// inlined as an object.
func (j Job) MarshalJSON() ([]byte, error) {
	input, err := json.Marshal(j.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	logs := j.Logs
	if logs == nil {
		logs = []string{}
	}
	artifacts := j.Artifacts
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	return json.Marshal(jobRecord{
		ID:           j.ID,
		Status:       j.Status,
		Progress:     j.Progress,
		CreatedAt:    formatRecordTime(j.CreatedAt),
		UpdatedAt:    formatRecordTime(j.UpdatedAt),
		SourceType:   j.SourceType,
		Language:     j.Language,
		PresetID:     j.PresetID,
		Input:        input,
		Logs:         logs,
		Artifacts:    artifacts,
		ErrorMessage: j.ErrorMessage,
	})
}

// UnmarshalJSON decodes the input payload into the variant named by sourceType.
func (j *Job) UnmarshalJSON(data []byte) error {
	var rec jobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	status, ok := ParseStatus(string(rec.Status))
	if !ok {
		return fmt.Errorf("unknown status %q", rec.Status)
	}
	input, err := decodeInput(rec.SourceType, rec.Input)
	if err != nil {
		return err
	}
	createdAt, err := parseRecordTime(rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	updatedAt, err := parseRecordTime(rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updatedAt: %w", err)
	}
	*j = Job{
		ID:           rec.ID,
		Status:       status,
		Progress:     rec.Progress,
		SourceType:   rec.SourceType,
		Language:     rec.Language,
		PresetID:     rec.PresetID,
		Input:        input,
		Logs:         rec.Logs,
		Artifacts:    rec.Artifacts,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if j.Logs == nil {
		j.Logs = []string{}
	}
	if j.Artifacts == nil {
		j.Artifacts = map[string]string{}
	}
	return nil
}

func decodeInput(sourceType SourceType, raw json.RawMessage) (Input, error) {
	var target Input
	switch sourceType {
	case SourceUpload:
		target = &UploadInput{}
	case SourceYouTube:
		target = &YouTubeInput{}
	default:
		return nil, fmt.Errorf("unknown source type %q", sourceType)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("input is missing")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s input: %w", sourceType, err)
	}
	return target, nil
}

func formatRecordTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(recordTimeLayout)
}

func parseRecordTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
