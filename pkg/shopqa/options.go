// Package shopqa is the public API: scrape a product page into a record and
// context, then answer questions about that context.
package shopqa

import (
	"time"

	"github.com/jmylchreest/shopqa/pkg/fetcher"
	"github.com/jmylchreest/shopqa/pkg/model/inference"
	"github.com/jmylchreest/shopqa/pkg/model/tokenizer"
	"github.com/jmylchreest/shopqa/pkg/product"
	"github.com/jmylchreest/shopqa/pkg/question"
)

// DefaultModelName is the SQuAD-tuned BERT model the server is expected to host.
const DefaultModelName = "bert-large-uncased-whole-word-masking-finetuned-squad"

// Config holds all shopqa configuration.
type Config struct {
	// Fetch settings
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int

	// Model settings
	ModelURL          string // KServe v2 base URL; empty disables Ask unless Model is set
	ModelName         string
	ModelAPIKey       string
	ModelTimeout      time.Duration
	MaxConcurrency    int // in-flight inference calls, 0 = unbounded
	VocabPath         string
	MaxSequenceLength int
	CasedVocab        bool // skip lower-casing and accent stripping

	// Model index settings. With an index, ModelName is looked up there and
	// the vocab is downloaded into ModelCacheDir unless VocabPath is set.
	ModelIndex    string
	ModelCacheDir string

	// Spelling settings
	DictionaryPath string // empty uses the embedded dictionary
	SpellCheck     bool

	// Injected collaborators take precedence over the settings above.
	Fetcher   fetcher.Fetcher
	Model     inference.Model
	Tokenizer tokenizer.Tokenizer
	Speller   question.Speller
	Selectors *product.Selectors
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:         fetcher.DefaultUserAgent,
		Timeout:           30 * time.Second,
		ModelName:         DefaultModelName,
		ModelTimeout:      30 * time.Second,
		MaxSequenceLength: 512,
		SpellCheck:        true,
	}
}

// Option configures a Client.
type Option func(*Config)

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the page fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxBodySize caps the size of fetched pages in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithModelServer points the client at a KServe v2 inference server.
func WithModelServer(url, model string) Option {
	return func(c *Config) {
		c.ModelURL = url
		if model != "" {
			c.ModelName = model
		}
	}
}

// WithModelAPIKey sets the bearer token for the inference server.
func WithModelAPIKey(key string) Option {
	return func(c *Config) {
		c.ModelAPIKey = key
	}
}

// WithModelTimeout sets the per-inference timeout.
func WithModelTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ModelTimeout = d
	}
}

// WithMaxConcurrency bounds concurrent inference calls.
func WithMaxConcurrency(n int) Option {
	return func(c *Config) {
		c.MaxConcurrency = n
	}
}

// WithVocab sets the path of the model's vocab.txt.
func WithVocab(path string) Option {
	return func(c *Config) {
		c.VocabPath = path
	}
}

// WithMaxSequenceLength caps the encoded (question, context) length.
func WithMaxSequenceLength(n int) Option {
	return func(c *Config) {
		c.MaxSequenceLength = n
	}
}

// WithModelIndex resolves ModelName through the index file at path, caching
// vocabularies under cacheDir (empty uses the default cache).
func WithModelIndex(path, cacheDir string) Option {
	return func(c *Config) {
		c.ModelIndex = path
		c.ModelCacheDir = cacheDir
	}
}

// WithCasedVocab keeps case and accents when tokenizing.
func WithCasedVocab(cased bool) Option {
	return func(c *Config) {
		c.CasedVocab = cased
	}
}

// WithDictionary loads spelling frequencies from path instead of the
// embedded list.
func WithDictionary(path string) Option {
	return func(c *Config) {
		c.DictionaryPath = path
	}
}

// WithSpellCheck toggles per-word spelling correction of questions.
func WithSpellCheck(enabled bool) Option {
	return func(c *Config) {
		c.SpellCheck = enabled
	}
}

// WithFetcher injects a fetcher (e.g. a headless browser).
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithModel injects an inference model.
func WithModel(m inference.Model) Option {
	return func(c *Config) {
		c.Model = m
	}
}

// WithTokenizer injects a tokenizer.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(c *Config) {
		c.Tokenizer = t
	}
}

// WithSpeller injects a spelling corrector.
func WithSpeller(s question.Speller) Option {
	return func(c *Config) {
		c.Speller = s
	}
}

// WithSelectors replaces the product page selector table.
func WithSelectors(s product.Selectors) Option {
	return func(c *Config) {
		c.Selectors = &s
	}
}
