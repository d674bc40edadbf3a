// Package notifications delivers job lifecycle events via ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// pipeline code can notify unconditionally. Per-event toggles in the
// [notifications] config section suppress individual event kinds.
package notifications
