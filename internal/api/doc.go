// Package api exposes the job engine over HTTP and provides the client the
// CLI uses to talk to a running daemon.
//
// Routes:
//
//	GET  /api/health
//	GET  /api/status
//	GET  /api/jobs
//	GET  /api/jobs/{id}
//	GET  /api/jobs/{id}/artifacts/{name}
//	POST /api/jobs/upload   (multipart: file, language, presetId)
//	POST /api/jobs/youtube  (JSON: url, language, presetId)
//	GET  /metrics
//
// Errors are returned as {"error": "..."} with 400 for validation failures,
// 404 for unknown jobs or artifacts, and 500 otherwise.
package api
