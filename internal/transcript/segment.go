package transcript

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// WordsPerSegment is the maximum number of words grouped into one segment.
	WordsPerSegment = 8
	// BaseDuration is the minimum length of a segment in seconds.
	BaseDuration = 2.4
	// DurationStep is added per unit of (characters mod 3).
	DurationStep = 0.4
	// SegmentGap is the pause inserted between consecutive segments.
	SegmentGap = 0.5
	// DefaultHighlightCount is how many highlights a job carries.
	DefaultHighlightCount = 3
	// SummaryLimit caps highlight summaries, counted in characters.
	SummaryLimit = 80
)

// Segment is a contiguous span of transcript text with start and end offsets
// in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Highlight is a short excerpt of a segment.
type Highlight struct {
	ID      string  `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Summary string  `json:"summary"`
}

// Split groups the words of text into segments of at most WordsPerSegment
// words. Words are separated by any run of whitespace. Segment i starts half
// a second after segment i-1 ends, and lasts BaseDuration plus DurationStep
// for each unit of the chunk's character count mod 3. Empty or all-whitespace
// text produces no segments.
func Split(text string) []Segment {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	segments := make([]Segment, 0, (len(words)+WordsPerSegment-1)/WordsPerSegment)
	cursor := 0.0
	for i := 0; i < len(words); i += WordsPerSegment {
		chunk := strings.Join(words[i:min(i+WordsPerSegment, len(words))], " ")
		start := cursor
		duration := BaseDuration + float64(utf8.RuneCountInString(chunk)%3)*DurationStep
		end := start + duration
		segments = append(segments, Segment{Start: start, End: end, Text: chunk})
		cursor = end + SegmentGap
	}
	return segments
}

// Highlights returns excerpts of the first count segments (fewer when the
// input is shorter). Summaries are cut at SummaryLimit characters without a
// truncation marker. A non-positive count selects DefaultHighlightCount.
func Highlights(segments []Segment, count int) []Highlight {
	if count <= 0 {
		count = DefaultHighlightCount
	}
	n := min(count, len(segments))
	highlights := make([]Highlight, 0, n)
	for i := 0; i < n; i++ {
		seg := segments[i]
		highlights = append(highlights, Highlight{
			ID:      fmt.Sprintf("highlight-%d", i+1),
			Start:   seg.Start,
			End:     seg.End,
			Summary: truncateRunes(seg.Text, SummaryLimit),
		})
	}
	return highlights
}

// CharacterCount reports the length of text in characters, not bytes.
func CharacterCount(text string) int {
	return utf8.RuneCountInString(text)
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
