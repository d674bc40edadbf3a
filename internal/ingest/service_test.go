package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"creatorpack/internal/config"
	"creatorpack/internal/ingest"
	"creatorpack/internal/jobs"
	"creatorpack/internal/logging"
	"creatorpack/internal/services"
	"creatorpack/internal/testsupport"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	ids      []string
	reserved map[string]bool
}

func (r *recordingSubmitter) Reserve(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reserved == nil {
		r.reserved = make(map[string]bool)
	}
	r.reserved[id] = true
}

func (r *recordingSubmitter) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, id)
}

func (r *recordingSubmitter) held() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reserved)
}

func (r *recordingSubmitter) Submit(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, id)
	r.ids = append(r.ids, id)
	return true
}

func (r *recordingSubmitter) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type stubLookup struct {
	meta       *jobs.Oembed
	transcript string
	err        error

	gotURL, gotVideoID, gotLanguage string
}

func (s *stubLookup) Lookup(_ context.Context, videoURL, videoID, language string) (*jobs.Oembed, string, error) {
	s.gotURL, s.gotVideoID, s.gotLanguage = videoURL, videoID, language
	return s.meta, s.transcript, s.err
}

func newService(t *testing.T, cfg *config.Config, opts ...ingest.Option) (*ingest.Service, jobs.Store, *recordingSubmitter) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	submitter := &recordingSubmitter{}
	return ingest.NewService(cfg, store, submitter, logging.NewNop(), opts...), store, submitter
}

func hasLog(job *jobs.Job, message string) bool {
	for _, entry := range job.Logs {
		if strings.HasSuffix(entry, " "+message) {
			return true
		}
	}
	return false
}

func TestCreateUploadStagesAndSubmits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, submitter := newService(t, cfg)

	payload := testsupport.Payload(2048)
	job, err := svc.CreateUpload(context.Background(), ingest.UploadRequest{
		OriginalName: "demo.mp3",
		Size:         int64(len(payload)),
		MimeType:     "audio/mpeg",
		Content:      bytes.NewReader(payload),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if job.Status != jobs.StatusQueued || job.Progress != 0 {
		t.Fatalf("job state = %s/%d, want queued/0", job.Status, job.Progress)
	}
	if job.Language != "en" {
		t.Fatalf("language = %q, want default en", job.Language)
	}
	input, ok := job.Input.(*jobs.UploadInput)
	if !ok {
		t.Fatalf("input type = %T", job.Input)
	}
	if input.OriginalName != "demo.mp3" || input.Filename != "demo.mp3" || input.MimeType != "audio/mpeg" {
		t.Fatalf("unexpected input: %+v", input)
	}
	if !hasLog(job, "Uploaded file demo.mp3") {
		t.Fatalf("logs missing upload entry: %v", job.Logs)
	}

	staged, err := os.ReadFile(filepath.Join(cfg.JobsDir(), job.ID, "input", "demo.mp3"))
	if err != nil {
		t.Fatalf("read staged input: %v", err)
	}
	if !bytes.Equal(staged, payload) {
		t.Fatalf("staged content differs from upload")
	}

	if got := submitter.submitted(); len(got) != 1 || got[0] != job.ID {
		t.Fatalf("submitted = %v, want [%s]", got, job.ID)
	}
	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Logs) != 1 {
		t.Fatalf("stored logs = %v", stored.Logs)
	}
}

func TestCreateUploadValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, submitter := newService(t, cfg)

	tests := []struct {
		name string
		req  ingest.UploadRequest
		want string
	}{
		{
			name: "missing file",
			req:  ingest.UploadRequest{Content: strings.NewReader("")},
			want: "File is required",
		},
		{
			name: "unsupported extension",
			req:  ingest.UploadRequest{OriginalName: "notes.txt", Size: 4, Content: strings.NewReader("text")},
			want: "Unsupported file type. Please upload audio/video files (mp3, mp4, wav, mov, m4a, webm).",
		},
		{
			name: "too large",
			req:  ingest.UploadRequest{OriginalName: "big.wav", Size: cfg.Ingest.MaxUploadBytes + 1, Content: strings.NewReader("x")},
			want: "File is too large. The upload limit is 25 MiB.",
		},
		{
			name: "bad language",
			req:  ingest.UploadRequest{OriginalName: "a.mp3", Size: 1, Language: "not a language", Content: strings.NewReader("x")},
			want: "Unsupported language code",
		},
		{
			name: "no content",
			req:  ingest.UploadRequest{OriginalName: "a.mp3", Size: 1},
			want: "File is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUpload(context.Background(), tt.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if got := services.UserMessage(err); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected requests created %d jobs", len(list))
	}
	if got := submitter.submitted(); len(got) != 0 {
		t.Fatalf("rejected requests were submitted: %v", got)
	}
}

func TestCreateUploadExtensionIsCaseInsensitive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg)

	job, err := svc.CreateUpload(context.Background(), ingest.UploadRequest{
		OriginalName: "Interview.MP4",
		Size:         3,
		Language:     "EN-us",
		Content:      strings.NewReader("abc"),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	if job.Language != "en-US" {
		t.Fatalf("language = %q, want en-US", job.Language)
	}
}

func TestCreateUploadRejectsContentBeyondLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ingest.MaxUploadBytes = 16
	svc, store, submitter := newService(t, cfg)

	_, err := svc.CreateUpload(context.Background(), ingest.UploadRequest{
		OriginalName: "clip.webm",
		Size:         8,
		Content:      bytes.NewReader(testsupport.Payload(64)),
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("jobs = %d, want 1 abandoned job", len(list))
	}
	if list[0].Status != jobs.StatusError {
		t.Fatalf("status = %s, want error", list[0].Status)
	}
	if len(submitter.submitted()) != 0 {
		t.Fatal("abandoned job was submitted")
	}
	if n := submitter.held(); n != 0 {
		t.Fatalf("abandoned job still reserved (%d held)", n)
	}
}

func TestCreateUploadSanitizesStagingName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg)

	job, err := svc.CreateUpload(context.Background(), ingest.UploadRequest{
		OriginalName: "../música?.mp3",
		Size:         1,
		Content:      strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	input := job.Input.(*jobs.UploadInput)
	if input.OriginalName != "../música?.mp3" {
		t.Fatalf("original name = %q", input.OriginalName)
	}
	if input.Filename != "m_sica.mp3" {
		t.Fatalf("filename = %q, want m_sica.mp3", input.Filename)
	}
	if err := jobs.ValidateName(input.Filename); err != nil {
		t.Fatalf("staging name invalid: %v", err)
	}
}

func TestCreateYouTubeAttachesLookupResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lookup := &stubLookup{
		meta:       &jobs.Oembed{Title: "Demo", AuthorName: "Channel"},
		transcript: "hello world",
	}
	svc, store, submitter := newService(t, cfg, ingest.WithLookup(lookup))

	job, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{
		URL:      "https://youtu.be/dQw4w9WgXcQ",
		Language: "de",
	})
	if err != nil {
		t.Fatalf("CreateYouTube: %v", err)
	}
	if lookup.gotVideoID != "dQw4w9WgXcQ" || lookup.gotLanguage != "de" {
		t.Fatalf("lookup called with %q/%q", lookup.gotVideoID, lookup.gotLanguage)
	}

	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	input := stored.Input.(*jobs.YouTubeInput)
	if input.Transcript != "hello world" || input.Oembed == nil || input.Oembed.Title != "Demo" {
		t.Fatalf("input not enriched: %+v", input)
	}
	if input.URL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("url = %q", input.URL)
	}
	if got := submitter.submitted(); len(got) != 1 || got[0] != job.ID {
		t.Fatalf("submitted = %v", got)
	}
	if n := submitter.held(); n != 0 {
		t.Fatalf("submitted job still reserved (%d held)", n)
	}
}

func TestCreateYouTubeLookupFailureIsLogged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lookup := &stubLookup{
		meta: &jobs.Oembed{Title: "Demo"},
		err:  services.Wrap(services.ErrUpstream, "youtube", "transcript", "request failed", errors.New("boom")),
	}
	svc, store, submitter := newService(t, cfg, ingest.WithLookup(lookup))

	job, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{
		URL: "https://www.youtube.com/watch?v=abc123",
	})
	if err != nil {
		t.Fatalf("CreateYouTube: %v", err)
	}
	if !hasLog(job, ingest.LookupFailedMessage) {
		t.Fatalf("logs missing lookup failure: %v", job.Logs)
	}

	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	input := stored.Input.(*jobs.YouTubeInput)
	if input.Oembed == nil || input.Oembed.Title != "Demo" {
		t.Fatalf("metadata fetched before the failure was dropped: %+v", input)
	}
	if input.HasTranscript() {
		t.Fatalf("unexpected transcript %q", input.Transcript)
	}
	if stored.Status != jobs.StatusQueued {
		t.Fatalf("status = %s, want queued", stored.Status)
	}
	if len(submitter.submitted()) != 1 {
		t.Fatal("job was not submitted after lookup failure")
	}
}

func TestCreateYouTubeWithoutLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg)

	job, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{
		URL: "https://www.youtube.com/embed/xyz789",
	})
	if err != nil {
		t.Fatalf("CreateYouTube: %v", err)
	}
	input := job.Input.(*jobs.YouTubeInput)
	if input.VideoID != "xyz789" || input.Oembed != nil || input.Transcript != "" {
		t.Fatalf("unexpected input: %+v", input)
	}
	if len(job.Logs) != 0 {
		t.Fatalf("logs = %v, want none", job.Logs)
	}
}

func TestCreateYouTubeValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, _ := newService(t, cfg)

	tests := []struct {
		url  string
		want string
	}{
		{"", "YouTube URL is required"},
		{"   ", "YouTube URL is required"},
		{"https://vimeo.com/123", "Invalid YouTube URL"},
		{"not a url", "Invalid YouTube URL"},
	}
	for _, tt := range tests {
		_, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{URL: tt.url})
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("CreateYouTube(%q) error = %v, want validation", tt.url, err)
		}
		if got := services.UserMessage(err); got != tt.want {
			t.Fatalf("CreateYouTube(%q) message = %q, want %q", tt.url, got, tt.want)
		}
	}

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("rejected requests created %d jobs", len(list))
	}
}

func TestCreateUsesGeneratedIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ids := []string{"job-one", "job-two"}
	next := 0
	svc, _, _ := newService(t, cfg, ingest.WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	upload, err := svc.CreateUpload(context.Background(), ingest.UploadRequest{
		OriginalName: "a.wav", Size: 1, Content: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	yt, err := svc.CreateYouTube(context.Background(), ingest.YouTubeRequest{URL: "https://youtu.be/abc"})
	if err != nil {
		t.Fatalf("CreateYouTube: %v", err)
	}
	if upload.ID != "job-one" || yt.ID != "job-two" {
		t.Fatalf("ids = %s, %s", upload.ID, yt.ID)
	}
}
