// Package ingest is the job creation boundary. It validates upload and
// YouTube requests, creates the queued job record, stages upload bytes or
// attaches looked-up YouTube metadata, and hands the job id to the scheduler
// without waiting for the pipeline.
package ingest
