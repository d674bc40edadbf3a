// Package logs tails the daemon's JSON log file for `creatorpack logs`.
//
// Tail reads either the last N lines or everything after a byte offset, and
// in follow mode blocks until new lines arrive or the wait expires. Match
// narrows output to records for one job.
package logs
