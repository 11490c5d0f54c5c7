// Package fetcher provides the headless-browser fetcher used by the CLI for
// product pages that only render their price blocks with JavaScript.
package fetcher

import (
	"time"

	"github.com/jmylchreest/shopqa/pkg/fetcher"
)

// Config holds configuration for the dynamic fetcher.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	ChromePath    string // empty means search the usual install locations
	ScreenshotDir string // where failed page loads are captured; empty disables
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: fetcher.DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}
