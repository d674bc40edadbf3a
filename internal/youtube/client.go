package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"creatorpack/internal/config"
	"creatorpack/internal/jobs"
	"creatorpack/internal/services"
)

const (
	component       = "youtube"
	maxResponseBody = 4 << 20
)

var (
	textElement = regexp.MustCompile(`<text[^>]*>([\s\S]*?)</text>`)
	markupTag   = regexp.MustCompile(`</?[^>]+>`)
)

// Client talks to the oEmbed and timedtext endpoints.
type Client struct {
	oembedURL        string
	timedTextURL     string
	fallbackLanguage string
	httpClient       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a client from the [youtube] config section.
func New(cfg config.YouTube, opts ...Option) (*Client, error) {
	oembedURL := strings.TrimSpace(cfg.OembedURL)
	timedTextURL := strings.TrimSpace(cfg.TimedTextURL)
	if oembedURL == "" || timedTextURL == "" {
		return nil, errors.New("youtube endpoints required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		oembedURL:        oembedURL,
		timedTextURL:     timedTextURL,
		fallbackLanguage: strings.TrimSpace(cfg.FallbackLanguage),
		httpClient:       &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup fetches oEmbed metadata and captions. Either part may be empty when
// the upstream has nothing; an error means a request could not be made.
func (c *Client) Lookup(ctx context.Context, videoURL, videoID, language string) (*jobs.Oembed, string, error) {
	meta, err := c.Oembed(ctx, videoURL)
	if err != nil {
		return nil, "", err
	}
	text, err := c.Transcript(ctx, videoID, language)
	if err != nil {
		return meta, "", err
	}
	return meta, text, nil
}

// Oembed returns metadata for videoURL, or nil when the endpoint declines.
func (c *Client) Oembed(ctx context.Context, videoURL string) (*jobs.Oembed, error) {
	endpoint, err := url.Parse(c.oembedURL)
	if err != nil {
		return nil, fmt.Errorf("parse oembed url: %w", err)
	}
	params := endpoint.Query()
	params.Set("url", videoURL)
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	resp, err := c.get(ctx, endpoint.String())
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, component, "oembed", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil, nil
	}

	var meta jobs.Oembed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&meta); err != nil {
		return nil, services.Wrap(services.ErrUpstream, component, "oembed", "decode response", err)
	}
	return &meta, nil
}

// Transcript returns caption text for videoID, trying language and then the
// fallback language. Caption lines are joined with single spaces. An empty
// string means no captions were found.
func (c *Client) Transcript(ctx context.Context, videoID, language string) (string, error) {
	for _, lang := range c.languages(language) {
		endpoint, err := url.Parse(c.timedTextURL)
		if err != nil {
			return "", fmt.Errorf("parse timedtext url: %w", err)
		}
		params := endpoint.Query()
		params.Set("lang", lang)
		params.Set("v", videoID)
		endpoint.RawQuery = params.Encode()

		resp, err := c.get(ctx, endpoint.String())
		if err != nil {
			return "", services.Wrap(services.ErrUpstream, component, "timedtext", "request failed", err)
		}
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			continue
		}
		if readErr != nil {
			return "", services.Wrap(services.ErrUpstream, component, "timedtext", "read response", readErr)
		}
		if text := ParseTimedText(string(raw)); text != "" {
			return text, nil
		}
	}
	return "", nil
}

// ParseTimedText extracts caption lines from a timedtext XML document.
// Entities are decoded, inline markup is removed, and empty lines dropped.
func ParseTimedText(raw string) string {
	if !strings.Contains(raw, "<text") {
		return ""
	}
	var lines []string
	for _, match := range textElement.FindAllStringSubmatch(raw, -1) {
		line := markupTag.ReplaceAllString(html.UnescapeString(match[1]), "")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, " ")
}

func (c *Client) languages(requested string) []string {
	var langs []string
	for _, lang := range []string{strings.TrimSpace(requested), c.fallbackLanguage} {
		if lang == "" || slices.ContainsFunc(langs, func(seen string) bool { return strings.EqualFold(seen, lang) }) {
			continue
		}
		langs = append(langs, lang)
	}
	return langs
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "creatorpack/0.1.0")
	return c.httpClient.Do(req)
}
