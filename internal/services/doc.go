// Package services defines shared utilities consumed by the job store, the
// pipeline runner, and the ingestion and API layers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (not found, validation, storage, upstream) with errors.Is no
//     matter how deeply it was wrapped.
package services
