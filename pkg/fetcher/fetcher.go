// Package fetcher retrieves product pages for extraction.
// Implement the Fetcher interface to plug in other transports.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls a single fetch. Zero values fall back to the fetcher's
// configuration.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Document parses the fetched HTML.
func (c Content) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.URL, err)
	}
	return doc, nil
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(err, fetcher.ErrStatus).
var (
	// ErrStatus indicates the server answered with a non-2xx status.
	ErrStatus = errors.New("unexpected HTTP status")
	// ErrEmpty indicates the server answered without a body.
	ErrEmpty = errors.New("empty response body")
	// ErrAntiBot indicates the site served a challenge page instead of the product.
	ErrAntiBot = errors.New("anti-bot protection detected")
	// ErrChallengeTimeout indicates the page never became ready in the browser.
	ErrChallengeTimeout = errors.New("challenge timeout")
)

// Chrome user agent sent by default.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultHeaders are the browser-like request headers product sites expect.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Encoding":           "gzip",
		"DNT":                       "1",
		"Connection":                "close",
		"Upgrade-Insecure-Requests": "1",
	}
}

// DetectChallenge reports the kind of challenge page html looks like, or ""
// for an ordinary page.
func DetectChallenge(title, html string) string {
	titleLower := strings.ToLower(title)
	htmlLower := strings.ToLower(html)

	switch {
	case strings.Contains(titleLower, "just a moment"),
		strings.Contains(titleLower, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case strings.Contains(htmlLower, "/errors/validatecaptcha"),
		strings.Contains(htmlLower, "type the characters you see in this image"):
		return "captcha"
	case strings.Contains(titleLower, "robot check"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}
	return ""
}

// pageTitle returns the trimmed <title> text.
func pageTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
