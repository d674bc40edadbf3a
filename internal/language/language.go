package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalid is returned when a code cannot be parsed as a language tag.
var ErrInvalid = errors.New("invalid language code")

// Word forms users type instead of codes.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// Normalize parses code as a BCP 47 tag and returns its canonical form
// ("EN-us" becomes "en-US", "eng" becomes "en"). English word forms such as
// "german" are accepted as well.
func Normalize(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if mapped, ok := words[strings.ToLower(trimmed)]; ok {
		return mapped, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, trimmed)
	}
	if tag == language.Und {
		return "", fmt.Errorf("%w: %q", ErrInvalid, trimmed)
	}
	return tag.String(), nil
}

// Base returns the primary language subtag of code, or "" when code does not parse.
func Base(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return ""
	}
	base, _ := language.Make(normalized).Base()
	return base.String()
}

// DisplayName returns the English name for a language code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Tags().Name(language.Make(normalized)); name != "" {
		return name
	}
	return strings.ToUpper(normalized)
}
