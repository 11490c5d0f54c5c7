package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/shopqa/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int               // bytes; 0 keeps colly's default
	Headers     map[string]string // sent with every request; nil means DefaultHeaders
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
		Headers:   DefaultHeaders(),
	}
}

// StaticFetcher uses Colly for static HTML fetching.
// It implements the Fetcher interface.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	def := DefaultStaticConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Headers == nil {
		cfg.Headers = def.Headers
	}
	return &StaticFetcher{config: cfg}
}

// Fetch retrieves a page with a single GET. Any status outside 2xx is an
// ErrStatus error.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	logger.Debug("static fetch starting", "url", targetURL)

	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	userAgent := coalesce(opts.UserAgent, f.config.UserAgent)
	collectorOpts := []colly.CollectorOption{
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
	}
	if f.config.MaxBodySize > 0 {
		collectorOpts = append(collectorOpts, colly.MaxBodySize(f.config.MaxBodySize))
	}
	c := colly.NewCollector(collectorOpts...)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	c.SetRequestTimeout(timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range f.config.Headers {
			r.Headers.Set(k, v)
		}
		for k, v := range opts.Headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		logger.Debug("static fetch response received",
			"status", r.StatusCode,
			"content_type", result.ContentType,
			"body_size", len(r.Body))
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
		logger.Debug("static fetch error", "status", result.StatusCode, "error", err)
	})

	if err := c.Visit(targetURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("fetch %s: %w", targetURL, ctxErr)
		}
		return result, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	if fetchErr != nil {
		return result, fmt.Errorf("fetch %s: %w", targetURL, fetchErr)
	}

	if result.StatusCode < 200 || result.StatusCode > 299 {
		return result, fmt.Errorf("%w: %s returned %d", ErrStatus, targetURL, result.StatusCode)
	}
	if result.HTML == "" {
		return result, fmt.Errorf("%w: %s", ErrEmpty, targetURL)
	}

	doc, err := result.Document()
	if err != nil {
		return result, err
	}
	result.Title = pageTitle(doc)

	if challenge := DetectChallenge(result.Title, result.HTML); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return result, fmt.Errorf("%w: %s", ErrAntiBot, challenge)
	}

	logger.Debug("static fetch complete", "url", targetURL, "title", result.Title)
	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}
