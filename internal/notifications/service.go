package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"creatorpack/internal/config"
)

const userAgent = "creatorpack/0.1.0"

// JobSummary is the subset of job state included in notifications.
type JobSummary struct {
	ID         string
	SourceType string
	Label      string
	Artifacts  int
}

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job JobSummary) error
	NotifyJobFailed(ctx context.Context, job JobSummary, message string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		jobCompleted: cfg.Notifications.JobCompleted,
		jobFailed:    cfg.Notifications.JobFailed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	jobCompleted bool
	jobFailed    bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job JobSummary) error {
	if !n.jobCompleted {
		return nil
	}
	message := fmt.Sprintf("✅ Job ready: %s", describe(job))
	if job.Artifacts > 0 {
		message = fmt.Sprintf("%s\nArtifacts: %d", message, job.Artifacts)
	}
	return n.send(ctx, payload{
		title:   "creatorpack - Job Complete",
		message: message,
		tags:    []string{"creatorpack", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job JobSummary, reason string) error {
	if !n.jobFailed {
		return nil
	}
	message := fmt.Sprintf("❌ Job failed: %s", describe(job))
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	return n.send(ctx, payload{
		title:    "creatorpack - Job Failed",
		message:  message,
		tags:     []string{"creatorpack", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	return n.send(ctx, payload{
		title:    "creatorpack - Error",
		message:  builder.String(),
		tags:     []string{"creatorpack", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "creatorpack - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"creatorpack", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// describe renders "label (source, id)" with whichever parts are known.
func describe(job JobSummary) string {
	label := strings.TrimSpace(job.Label)
	if label == "" {
		label = job.ID
	}
	var extra []string
	if job.SourceType != "" {
		extra = append(extra, job.SourceType)
	}
	if job.ID != "" && label != job.ID {
		extra = append(extra, job.ID)
	}
	if len(extra) == 0 {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, strings.Join(extra, ", "))
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, JobSummary) error      { return nil }
func (noopService) NotifyJobFailed(context.Context, JobSummary, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
