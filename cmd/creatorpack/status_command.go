package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"creatorpack/internal/api"
	"creatorpack/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				for _, line := range renderSectionHeader("System Status", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not reachable at "+ctx.baseURL(), colorize))
				return err
			}

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range daemonStatusLines(status, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Jobs", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := buildJobStatsRows(status.Workflow.JobStats)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func daemonStatusLines(status *api.DaemonStatus, colorize bool) []string {
	daemonKind, daemonDetail := statusOK, fmt.Sprintf("Running (pid %d)", status.PID)
	if !status.Running {
		daemonKind, daemonDetail = statusError, "Not running"
	}
	workflowKind, workflowDetail := statusOK, fmt.Sprintf("%d/%d workers busy", status.Workflow.Active, status.Workflow.Workers)
	if !status.Workflow.Running {
		workflowKind, workflowDetail = statusWarn, "Stopped"
	}
	lines := []string{
		renderStatusLine("Daemon", daemonKind, daemonDetail, colorize),
		renderStatusLine("Workflow", workflowKind, workflowDetail, colorize),
		renderField("Store", status.StoreBackend),
		renderField("Data directory", status.DataDir),
	}
	if status.Workflow.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}
	return lines
}

func buildJobStatsRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	total := 0
	for _, status := range jobs.AllStatuses() {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		total += count
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	if total == 0 {
		return nil
	}
	return rows
}
