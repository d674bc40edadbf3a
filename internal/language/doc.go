// Package language normalizes user-supplied language codes into canonical
// BCP 47 tags and renders English display names for them.
package language
