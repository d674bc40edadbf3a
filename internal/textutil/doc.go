// Package textutil turns user-supplied text into values that are safe to use
// on the filesystem.
//
// SanitizeFileName maps an uploaded file's original name to a single path
// segment made of portable characters. Ingestion stages uploads under that
// name; an empty result means the caller must pick a fallback.
package textutil
