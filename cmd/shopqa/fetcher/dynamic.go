package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/pkg/fetcher"
)

// DynamicFetcher uses chromedp for JavaScript-rendered pages.
type DynamicFetcher struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamicFetcher creates a new dynamic fetcher with a browser allocator.
// The browser itself starts on the first fetch.
func NewDynamicFetcher(cfg Config) (*DynamicFetcher, error) {
	def := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)

	chromePath := cfg.ChromePath
	if chromePath == "" {
		chromePath = FindChromePath()
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "chrome", chromePath, "timeout", cfg.Timeout)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancelAlloc,
	}, nil
}

// Fetch loads targetURL in a fresh browser tab and returns the rendered HTML.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts fetcher.Options) (fetcher.Content, error) {
	result := fetcher.Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well as the timeout.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html, title string
	actions := []chromedp.Action{network.Enable()}
	if headers := requestHeaders(opts.Headers); len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions, chromedp.Navigate(targetURL))

	waitFor := opts.WaitForSelector
	if waitFor == "" {
		waitFor = "body"
	}
	actions = append(actions, chromedp.WaitReady(waitFor))
	if opts.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(opts.WaitDuration))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	logger.Debug("chromedp executing actions",
		"url", targetURL,
		"action_count", len(actions),
		"timeout", timeout)

	resp, err := chromedp.RunResponse(timeoutCtx, actions...)
	if err != nil {
		f.saveScreenshot(browserCtx)
		if ctx.Err() != nil {
			return result, fmt.Errorf("fetch %s: %w", targetURL, ctx.Err())
		}
		if timeoutCtx.Err() != nil || strings.Contains(err.Error(), "deadline exceeded") {
			logger.Warn("browser timeout - page never became ready", "url", targetURL)
			return result, fmt.Errorf("%w: %v", fetcher.ErrChallengeTimeout, err)
		}
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	if resp != nil {
		result.StatusCode = int(resp.Status)
		result.ContentType = resp.MimeType
	}
	result.HTML = html
	result.Title = strings.TrimSpace(title)

	if result.StatusCode != 0 && (result.StatusCode < 200 || result.StatusCode > 299) {
		return result, fmt.Errorf("%w: %s returned %d", fetcher.ErrStatus, targetURL, result.StatusCode)
	}
	if challenge := fetcher.DetectChallenge(result.Title, html); challenge != "" {
		logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
		return result, fmt.Errorf("%w: %s", fetcher.ErrAntiBot, challenge)
	}

	logger.Debug("dynamic fetch complete",
		"url", targetURL,
		"status", result.StatusCode,
		"title", result.Title,
		"html_size", len(html))

	return result, nil
}

// Close releases browser resources.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}

// saveScreenshot captures the tab for debugging when a load fails.
func (f *DynamicFetcher) saveScreenshot(ctx context.Context) {
	if f.config.ScreenshotDir == "" {
		return
	}

	var shot []byte
	captureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&shot)); err != nil {
		return
	}

	path := filepath.Join(f.config.ScreenshotDir, fmt.Sprintf("shopqa-debug-%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, shot, 0o644); err == nil {
		logger.Debug("debug screenshot saved", "path", path)
	}
}

// requestHeaders merges the default browser headers with overrides.
// Chrome manages Accept-Encoding and Connection itself.
func requestHeaders(overrides map[string]string) network.Headers {
	h := network.Headers{}
	for k, v := range fetcher.DefaultHeaders() {
		h[k] = v
	}
	for k, v := range overrides {
		h[k] = v
	}
	delete(h, "Accept-Encoding")
	delete(h, "Connection")
	return h
}
