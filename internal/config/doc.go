// Package config loads, normalizes, and validates creatorpack configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CREATORPACK_NTFY_TOPIC. The Config type centralizes every knob the daemon,
// the pipeline, and the CLI need so storage locations, pipeline pacing, and
// ingestion limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical enum values, and clear validation errors.
package config
