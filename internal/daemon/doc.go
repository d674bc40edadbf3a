// Package daemon coordinates the long-running creatorpackd process.
//
// It wires configuration, the job store, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. Startup refuses to proceed when the data directory fails its
// preflight check.
//
// Keep orchestration logic here: pipeline steps live in package pipeline and
// scheduling in package workflow, while the daemon focuses on startup,
// shutdown, and status.
package daemon
