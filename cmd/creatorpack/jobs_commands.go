package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creatorpack/internal/api"
	"creatorpack/internal/jobs"
)

const waitPollInterval = 500 * time.Millisecond

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Submit and inspect jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsLogsCommand(ctx))
	jobsCmd.AddCommand(newJobsUploadCommand(ctx))
	jobsCmd.AddCommand(newJobsYouTubeCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[jobs.Status]bool, len(statuses))
			for _, value := range statuses {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				filter[status] = true
			}

			list, err := ctx.client().ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if len(filter) > 0 {
				kept := list[:0]
				for _, job := range list {
					if filter[job.Status] {
						kept = append(kept, job)
					}
				}
				list = kept
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if list == nil {
					list = []*jobs.Job{}
				}
				return writeJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"ID", "Source", "Status", "Progress", "Created"},
				buildJobListRows(list, shouldColorize(out)),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show jobs in these statuses")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, job)
			}
			printJob(out, job)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newJobsLogsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <job-id>",
		Short: "Print a job's log lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(job.Logs) == 0 {
				fmt.Fprintln(out, "No log entries")
				return nil
			}
			for _, line := range job.Logs {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newJobsUploadCommand(ctx *commandContext) *cobra.Command {
	var languageCode string
	var presetID string
	var wait bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an audio or video file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			id, err := client.UploadFile(cmd.Context(), args[0], languageCode, presetID)
			if err != nil {
				return err
			}
			return reportCreated(cmd, client, id, wait)
		},
	}
	cmd.Flags().StringVarP(&languageCode, "language", "l", "", "Transcript language (BCP 47 code, defaults to the daemon setting)")
	cmd.Flags().StringVar(&presetID, "preset", "", "Export preset identifier")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	return cmd
}

func newJobsYouTubeCommand(ctx *commandContext) *cobra.Command {
	var languageCode string
	var presetID string
	var wait bool

	cmd := &cobra.Command{
		Use:   "youtube <url>",
		Short: "Create a job from a YouTube link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			id, err := client.CreateYouTube(cmd.Context(), api.YouTubeRequest{
				URL:      args[0],
				Language: languageCode,
				PresetID: presetID,
			})
			if err != nil {
				return err
			}
			return reportCreated(cmd, client, id, wait)
		},
	}
	cmd.Flags().StringVarP(&languageCode, "language", "l", "", "Caption language (BCP 47 code, defaults to the daemon setting)")
	cmd.Flags().StringVar(&presetID, "preset", "", "Export preset identifier")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	return cmd
}

func reportCreated(cmd *cobra.Command, client *api.Client, id string, wait bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created job %s\n", id)
	if !wait {
		return nil
	}
	job, err := waitForJob(cmd.Context(), client, id, waitPollInterval, out)
	if err != nil {
		return err
	}
	if job.Status == jobs.StatusError {
		return fmt.Errorf("job %s failed: %s", id, job.ErrorMessage)
	}
	fmt.Fprintf(out, "Job %s complete; artifacts: %s\n", id, strings.Join(job.ArtifactNames(), ", "))
	return nil
}

// waitForJob polls until the job reaches a terminal status, printing each
// progress change.
func waitForJob(ctx context.Context, client *api.Client, id string, interval time.Duration, out io.Writer) (*jobs.Job, error) {
	lastProgress := -1
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := client.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Progress != lastProgress {
			fmt.Fprintf(out, "  %s %3d%%\n", job.Status, job.Progress)
			lastProgress = job.Progress
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), fmt.Errorf("job %s still %s", id, job.Status))
		case <-ticker.C:
		}
	}
}

func printJob(out io.Writer, job *jobs.Job) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Job", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range jobDetailLines(job, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Artifacts", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildArtifactRows(job)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No artifacts yet")
	} else {
		fmt.Fprint(out, renderTable([]string{"Name", "Location"}, rows, nil))
	}
	fmt.Fprintf(out, "\n%d log entries (creatorpack jobs logs %s)\n", len(job.Logs), job.ID)
}
