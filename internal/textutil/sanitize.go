package textutil

import "strings"

const maxFileNameLength = 200

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName reduces name to a portable single path segment.
// Slashes, backslashes, colons, and asterisks become dashes; other shell-unsafe
// characters are removed. Anything outside ASCII letters, digits, space and
// "._()-" becomes an underscore, and runs of dots collapse so the result can
// never climb out of a directory. Returns "" when nothing usable remains.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)

	var b strings.Builder
	lastDot := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if lastDot {
				continue
			}
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '(' || r == ')' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		lastDot = r == '.'
	}

	out := strings.TrimLeft(b.String(), " ._()-")
	out = strings.TrimSpace(out)
	if len(out) > maxFileNameLength {
		out = strings.TrimSpace(out[len(out)-maxFileNameLength:])
		out = strings.TrimLeft(out, " ._()-")
	}
	return out
}
