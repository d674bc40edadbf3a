// Package transcript turns free text into time-coded segments and picks
// highlight excerpts from them.
//
// Timing is synthetic: segment length depends only on word grouping and the
// character count of each chunk, so the same text always yields the same
// segments.
package transcript
