// Package preflight provides readiness checks for the filesystem paths and
// upstream endpoints that creatorpack depends on.
//
// These checks run in two contexts:
//   - The daemon calls CheckDataDir before opening the job store and refuses
//     to start when the data directory is unusable.
//   - The CLI "creatorpack check" command runs RunAll and prints each result.
//
// Network checks are gated by their config toggle; disabled features are skipped.
package preflight
