// Package registry catalogs the question answering models a deployment can
// use: the name each is served under and the vocabulary its tokenizer needs.
package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// Registry provides model discovery and vocabulary caching.
type Registry interface {
	// List returns all models matching the given options.
	List(ctx context.Context, opts ...ListOption) ([]ModelInfo, error)

	// Get returns metadata for a specific model by name.
	Get(ctx context.Context, name string) (*ModelInfo, error)

	// EnsureVocab downloads the model's vocab.txt if it is not already cached
	// and returns the local path.
	EnsureVocab(ctx context.Context, name string) (localPath string, err error)
}

// ModelInfo describes one extractive QA model.
type ModelInfo struct {
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description,omitempty" yaml:"description,omitempty"`
	ServedName        string   `json:"served_name,omitempty" yaml:"served_name,omitempty"` // name on the inference server; defaults to Name
	VocabURL          string   `json:"vocab_url,omitempty" yaml:"vocab_url,omitempty"`
	VocabSHA256       string   `json:"vocab_sha256,omitempty" yaml:"vocab_sha256,omitempty"`
	MaxSequenceLength int      `json:"max_sequence_length,omitempty" yaml:"max_sequence_length,omitempty"`
	Cased             bool     `json:"cased,omitempty" yaml:"cased,omitempty"`
	Tags              []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Served returns the name to request from the inference server.
func (m ModelInfo) Served() string {
	if m.ServedName != "" {
		return m.ServedName
	}
	return m.Name
}

// ListOption configures a List call.
type ListOption func(*listConfig)

type listConfig struct {
	tags  []string
	cased *bool
}

// WithTags filters models that have all specified tags.
func WithTags(tags ...string) ListOption {
	return func(c *listConfig) { c.tags = tags }
}

// WithCased filters on whether the model's vocabulary is cased.
func WithCased(cased bool) ListOption {
	return func(c *listConfig) { c.cased = &cased }
}

// DefaultCacheDir returns the default vocabulary cache directory.
// Respects SHOPQA_MODEL_CACHE, otherwise uses ~/.cache/shopqa/models/.
func DefaultCacheDir() string {
	if dir := os.Getenv("SHOPQA_MODEL_CACHE"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "shopqa", "models")
	}
	return filepath.Join(home, ".cache", "shopqa", "models")
}

// ErrModelNotFound is returned when a requested model is not in the registry.
var ErrModelNotFound = errors.New("model not found")
