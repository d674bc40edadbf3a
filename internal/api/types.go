package api

import (
	"net/http"

	"creatorpack/internal/jobs"
	"creatorpack/internal/workflow"
)

// CreateJobResponse is returned by both creation endpoints.
type CreateJobResponse struct {
	JobID string `json:"jobId"`
}

func (CreateJobResponse) Render(http.ResponseWriter, *http.Request) error { return nil }

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

func (HealthResponse) Render(http.ResponseWriter, *http.Request) error { return nil }

// YouTubeRequest is the JSON body accepted by POST /api/jobs/youtube.
type YouTubeRequest struct {
	URL      string `json:"url"`
	Language string `json:"language,omitempty"`
	PresetID string `json:"presetId,omitempty"`
}

// WorkflowStatus summarizes scheduler state.
type WorkflowStatus struct {
	Running   bool           `json:"running"`
	Workers   int            `json:"workers"`
	Active    int            `json:"active"`
	Pending   int            `json:"pending"`
	Finished  int            `json:"finished"`
	LastError string         `json:"lastError,omitempty"`
	LastJobID string         `json:"lastJobId,omitempty"`
	JobStats  map[string]int `json:"jobStats"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StoreBackend string         `json:"storeBackend"`
	DataDir      string         `json:"dataDir"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

func (DaemonStatus) Render(http.ResponseWriter, *http.Request) error { return nil }

// FromStatusSummary converts the scheduler summary into its transport form.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	stats := make(map[string]int, len(summary.JobStats))
	for _, status := range jobs.AllStatuses() {
		stats[string(status)] = summary.JobStats[status]
	}
	return WorkflowStatus{
		Running:   summary.Running,
		Workers:   summary.Workers,
		Active:    summary.Active,
		Pending:   summary.Pending,
		Finished:  summary.Finished,
		LastError: summary.LastError,
		LastJobID: summary.LastJobID,
		JobStats:  stats,
	}
}
