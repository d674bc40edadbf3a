package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var embedPattern = regexp.MustCompile(`/embed/(.+)`)

// ExtractVideoID returns the video id referenced by rawURL. Supported forms
// are youtu.be/<id>, youtube.com/watch?v=<id>, and youtube.com/embed/<id>.
func ExtractVideoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	var id string
	switch {
	case strings.Contains(host, "youtu.be"):
		id = strings.TrimPrefix(parsed.Path, "/")
	case strings.Contains(host, "youtube.com"):
		if v := parsed.Query().Get("v"); v != "" {
			id = v
		} else if match := embedPattern.FindStringSubmatch(parsed.Path); match != nil {
			id = match[1]
		}
	}
	id = strings.TrimSpace(id)
	return id, id != ""
}
