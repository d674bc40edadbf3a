// Package main hosts the creatorpack CLI.
//
// Commands talk to a running creatorpackd over its HTTP API: submitting
// uploads and YouTube links, listing and inspecting jobs, and downloading
// finished artifacts. Configuration scaffolding and preflight checks run
// locally and do not need the daemon.
package main
