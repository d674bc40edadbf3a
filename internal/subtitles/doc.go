// Package subtitles converts time-coded text into SubRip (SRT) subtitle files
// and validates SRT bodies.
//
// Timestamps are rendered as HH:MM:SS,mmm with the fractional second
// truncated to whole milliseconds. Bodies list cues in order, each numbered
// from 1, separated by a blank line.
package subtitles
