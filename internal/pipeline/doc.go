// Package pipeline drives a single job through the fixed five-step
// lifecycle: validate, extract/transcribe, segment/highlight, export, and
// complete.
//
// Runner persists status, progress, and a "Step i/5" log line before each
// step and sleeps for the configured step delay afterwards. Failures of any
// kind, including panics and shutdown cancellation, leave the job in the
// error state with a message; a job is never left in processing by a Runner
// that returns.
//
// Transcription is pluggable through Transcriber. The bundled
// PlaceholderTranscriber produces deterministic text from the upload's
// original filename.
package pipeline
