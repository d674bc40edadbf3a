package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"creatorpack/internal/jobs"
	"creatorpack/internal/language"
)

const timeLayout = "2006-01-02 15:04:05"

func buildJobListRows(list []*jobs.Job, colorize bool) [][]string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.ID,
			jobLabel(job),
			colorStatus(job.Status, colorize),
			strconv.Itoa(job.Progress) + "%",
			formatLocalTime(job.CreatedAt),
		})
	}
	return rows
}

// jobLabel is the most human-friendly name available for a job's source.
func jobLabel(job *jobs.Job) string {
	switch in := job.Input.(type) {
	case *jobs.UploadInput:
		return in.OriginalName
	case *jobs.YouTubeInput:
		if in.Oembed != nil && strings.TrimSpace(in.Oembed.Title) != "" {
			return in.Oembed.Title
		}
		return in.URL
	default:
		return string(job.SourceType)
	}
}

func jobDetailLines(job *jobs.Job, colorize bool) []string {
	lines := []string{
		renderField("ID", job.ID),
		renderStatusLine("Status", jobStatusKind(job.Status), fmt.Sprintf("%s (%d%%)", job.Status, job.Progress), colorize),
		renderField("Source", string(job.SourceType)),
		renderField("Language", fmt.Sprintf("%s (%s)", language.DisplayName(job.Language), job.Language)),
	}
	if job.PresetID != "" {
		lines = append(lines, renderField("Preset", job.PresetID))
	}

	switch in := job.Input.(type) {
	case *jobs.UploadInput:
		lines = append(lines,
			renderField("Original name", in.OriginalName),
			renderField("Size", formatBytes(in.Size)),
		)
		if in.MimeType != "" {
			lines = append(lines, renderField("MIME type", in.MimeType))
		}
	case *jobs.YouTubeInput:
		lines = append(lines, renderField("URL", in.URL))
		if in.Oembed != nil {
			lines = append(lines,
				renderField("Title", in.Oembed.Title),
				renderField("Channel", in.Oembed.AuthorName),
			)
		}
		lines = append(lines, renderField("Captions", yesNo(in.HasTranscript())))
	}

	lines = append(lines,
		renderField("Created", formatLocalTime(job.CreatedAt)),
		renderField("Updated", formatLocalTime(job.UpdatedAt)),
	)
	if job.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
	}
	return lines
}

func buildArtifactRows(job *jobs.Job) [][]string {
	names := job.ArtifactNames()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, job.Artifacts[name]})
	}
	return rows
}

func formatLocalTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
