package subtitles

import (
	"strings"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{3661.5, "01:01:01,500"},
		{2.4, "00:00:02,400"},
		{2.9, "00:00:02,900"},
		{59.9999, "00:00:59,999"},
		{3599.999, "00:59:59,999"},
		{36000, "10:00:00,000"},
		{-5, "00:00:00,000"},
	}
	for _, tc := range tests {
		if got := FormatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestFormatTimestampTruncates(t *testing.T) {
	// 1.0009 seconds has 0.9ms past the millisecond boundary; it must not round up.
	if got := FormatTimestamp(1.0009); got != "00:00:01,000" {
		t.Fatalf("expected truncation, got %q", got)
	}
}

func TestBodyFormat(t *testing.T) {
	body := Body([]Cue{
		{Start: 0, End: 2.4, Text: "first cue"},
		{Start: 2.9, End: 5.7, Text: "second cue"},
	})
	want := "1\n00:00:00,000 --> 00:00:02,400\nfirst cue\n\n2\n00:00:02,900 --> 00:00:05,700\nsecond cue\n"
	if body != want {
		t.Fatalf("unexpected body:\n%q\nwant:\n%q", body, want)
	}
	if Body(nil) != "" {
		t.Fatal("expected empty body for no cues")
	}
}

func TestParseRoundTripsBody(t *testing.T) {
	cues := []Cue{{Start: 0, End: 2.4, Text: "a"}, {Start: 2.9, End: 6.1, Text: "b"}}
	parsed, err := Parse(Body(cues))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed) != 2 || parsed[1].Text != "b" || parsed[0].End != 2.4 {
		t.Fatalf("unexpected parsed cues %+v", parsed)
	}
}

func TestParseTimestampRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "00:00", "00:00:00", "aa:00:00,000", "00:61:00,000"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	got, err := ParseTimestamp("01:01:01.500")
	if err != nil || got != 3661.5 {
		t.Fatalf("period separator: got %v err %v", got, err)
	}
}

func TestValidate(t *testing.T) {
	if issues := Validate(Body([]Cue{{Start: 0, End: 1, Text: "ok"}})); len(issues) != 0 {
		t.Fatalf("expected clean body, got %v", issues)
	}
	if issues := Validate(""); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues for empty body: %v", issues)
	}
	bad := "1\n00:00:05,000 --> 00:00:01,000\ntext\n\n2\n00:00:00,000 --> 00:00:01,000\n\n"
	issues := Validate(bad)
	joined := strings.Join(issues, ",")
	for _, want := range []string{"cue_1_ends_before_start", "cue_2_out_of_order", "cue_2_empty_text"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %s in %v", want, issues)
		}
	}
	if issues := Validate("2\n00:00:00,000 --> 00:00:01,000\nx\n"); len(issues) != 1 || !strings.HasPrefix(issues[0], "parse_error") {
		t.Fatalf("expected numbering error, got %v", issues)
	}
}
