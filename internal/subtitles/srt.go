package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cue is one numbered subtitle entry.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. The fractional second is
// truncated to whole milliseconds rather than rounded. Negative and
// non-finite inputs render as zero.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	// The epsilon absorbs binary representation error (2.4 is stored as
	// 2.39999...) without moving any real value across a millisecond.
	total := int64(math.Floor(seconds*1000 + millisecondEpsilon))
	millis := total % 1000
	secs := (total / 1000) % 60
	minutes := (total / 60_000) % 60
	hours := total / 3_600_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

const millisecondEpsilon = 1e-7

// Body renders cues as an SRT document:
//
//	1
//	00:00:00,000 --> 00:00:02,400
//	first cue text
//
//	2
//	...
//
// Every cue ends with a newline and cues are separated by one blank line.
func Body(cues []Cue) string {
	blocks := make([]string, 0, len(cues))
	for i, cue := range cues {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text))
	}
	return strings.Join(blocks, "\n")
}

// ParseTimestamp converts HH:MM:SS,mmm (or HH:MM:SS.mmm) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || millis > 999 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp %q out of range", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Parse reads an SRT body back into cues. Multi-line cue text is joined with
// newlines.
func Parse(body string) ([]Cue, error) {
	content := strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	if content == "" {
		return nil, nil
	}
	var cues []Cue
	for idx, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("cue %d: expected index and timing lines", idx+1)
		}
		number, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("cue %d: invalid index %q", idx+1, lines[0])
		}
		if number != idx+1 {
			return nil, fmt.Errorf("cue %d: numbered %d", idx+1, number)
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			return nil, fmt.Errorf("cue %d: invalid timing line %q", idx+1, lines[1])
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", idx+1, err)
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", idx+1, err)
		}
		cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(lines[2:], "\n")})
	}
	return cues, nil
}

// Validate checks an SRT body for format issues. An empty result means the
// body passed.
func Validate(body string) []string {
	cues, err := Parse(body)
	if err != nil {
		return []string{fmt.Sprintf("parse_error: %v", err)}
	}
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	var previousStart float64
	for i, cue := range cues {
		if cue.End < cue.Start {
			issues = append(issues, fmt.Sprintf("cue_%d_ends_before_start", i+1))
		}
		if i > 0 && cue.Start < previousStart {
			issues = append(issues, fmt.Sprintf("cue_%d_out_of_order", i+1))
		}
		if strings.TrimSpace(cue.Text) == "" {
			issues = append(issues, fmt.Sprintf("cue_%d_empty_text", i+1))
		}
		previousStart = cue.Start
	}
	return issues
}
