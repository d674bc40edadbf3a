// Package metrics exposes Prometheus instrumentation for job processing and
// the HTTP API.
//
// A Registry owns its own prometheus.Registry so tests and multiple daemons in
// one process never collide on the global default registerer. All recording
// methods are safe on a nil *Registry, which lets callers treat metrics as
// optional.
package metrics
