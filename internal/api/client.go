package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creatorpack/internal/jobs"
	"creatorpack/internal/services"
)

// Error is a non-2xx response from the daemon API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon api: %s (HTTP %d)", e.Message, e.StatusCode)
}

// Unwrap lets errors.Is match the service markers for 400 and 404.
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	default:
		return nil
	}
}

// Client talks to a running daemon over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient returns a client for the API served at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health returns nil when the daemon answers /api/health.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	return c.getJSON(ctx, "/api/health", &resp)
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.getJSON(ctx, "/api/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListJobs returns every job, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	var list []*jobs.Job
	if err := c.getJSON(ctx, "/api/jobs", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	var job jobs.Job
	if err := c.getJSON(ctx, "/api/jobs/"+url.PathEscape(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UploadFile streams the file at path to the daemon and returns the new job id.
func (c *Client) UploadFile(ctx context.Context, path, language, presetID string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(form, file, filepath.Base(path), language, presetID))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp CreateJobResponse
	if err := c.do(req, &resp); err != nil {
		_ = pr.CloseWithError(err)
		return "", err
	}
	return resp.JobID, nil
}

func writeUploadForm(form *multipart.Writer, file io.Reader, name, language, presetID string) error {
	if language != "" {
		if err := form.WriteField("language", language); err != nil {
			return err
		}
	}
	if presetID != "" {
		if err := form.WriteField("presetId", presetID); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return form.Close()
}

// CreateYouTube submits a YouTube job and returns its id.
func (c *Client) CreateYouTube(ctx context.Context, body YouTubeRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/jobs/youtube", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp CreateJobResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// DownloadArtifact copies an artifact into w and returns the byte count.
func (c *Client) DownloadArtifact(ctx context.Context, id, name string, w io.Writer) (int64, error) {
	endpoint := c.baseURL + "/api/jobs/" + url.PathEscape(id) + "/artifacts/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.send(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// send performs req and converts non-2xx responses into *Error.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("connect to daemon at %s: %w; start it with `creatorpackd`", c.baseURL, err)
		}
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	}
	return nil, apiErr
}
