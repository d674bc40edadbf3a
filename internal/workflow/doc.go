// Package workflow schedules queued jobs onto a bounded pool of pipeline
// workers.
//
// Submit is fire-and-forget: it hands a job id to the pool without waiting
// for the pipeline and never blocks the caller. A periodic sweep re-discovers
// queued jobs that were not submitted (a full hand-off buffer, or jobs created
// while the daemon was down), so a submission that is dropped is only delayed.
//
// Ingestion reserves a job id before creating the job and submits it once the
// job's input is complete; the sweep skips reserved ids so a half-written job
// is never picked up.
//
// On start the Manager recovers jobs a previous process left in processing by
// marking them failed; no pipeline step is ever re-executed.
package workflow
