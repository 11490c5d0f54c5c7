package shopqa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/internal/metrics"
	"github.com/jmylchreest/shopqa/pkg/answer"
	"github.com/jmylchreest/shopqa/pkg/fetcher"
	"github.com/jmylchreest/shopqa/pkg/model/inference"
	"github.com/jmylchreest/shopqa/pkg/model/registry"
	"github.com/jmylchreest/shopqa/pkg/model/tokenizer"
	"github.com/jmylchreest/shopqa/pkg/product"
	"github.com/jmylchreest/shopqa/pkg/question"
	"github.com/jmylchreest/shopqa/pkg/spell"
)

var (
	// ErrNoModel is returned by Ask when no model or tokenizer is configured.
	ErrNoModel = errors.New("question answering is not configured: set a model server and vocab")
	// ErrFetch wraps every failure to retrieve a product page.
	ErrFetch = errors.New("fetch failed")
)

// Client scrapes product pages and answers questions about them.
// It is safe for concurrent use.
type Client struct {
	config    Config
	fetcher   fetcher.Fetcher
	extractor *product.Extractor
	answerer  *answer.Answerer
	model     inference.Model
}

// New creates a Client. Scraping always works; Ask needs a model and a
// tokenizer, either injected or built from ModelURL and VocabPath.
// The client owns the fetcher and model, injected or not: on error New
// closes whichever of them it already holds.
func New(opts ...Option) (_ *Client, err error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{config: cfg}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				logger.Warn("failed to release client after setup error", "error", cerr)
			}
		}
	}()

	c.fetcher = cfg.Fetcher
	if c.fetcher == nil {
		c.fetcher = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.Timeout,
			MaxBodySize: cfg.MaxBodySize,
		})
	}

	extractOpts := []product.Option{product.WithMatchFunc(metrics.ObserveSelectorMatch)}
	if cfg.Selectors != nil {
		extractOpts = append(extractOpts, product.WithSelectors(*cfg.Selectors))
	}
	c.extractor = product.NewExtractor(extractOpts...)

	if cfg.ModelIndex != "" {
		if err := applyIndex(&cfg); err != nil {
			return nil, err
		}
		c.config = cfg
	}

	tok, err := buildTokenizer(cfg)
	if err != nil {
		return nil, err
	}
	model, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}
	if tok == nil || model == nil {
		logger.Debug("question answering disabled", "tokenizer", tok != nil, "model", model != nil)
		if model != nil {
			if cerr := model.Close(); cerr != nil {
				logger.Warn("failed to close unused model", "error", cerr)
			}
		}
		return c, nil
	}
	c.model = model

	speller, err := buildSpeller(cfg)
	if err != nil {
		return nil, err
	}
	c.answerer, err = answer.New(tok, model, answer.WithNormalizer(question.NewNormalizer(speller)))
	if err != nil {
		return nil, fmt.Errorf("failed to create answerer: %w", err)
	}

	logger.Debug("question answering enabled", "model", model.Name(), "spell_check", speller != nil)
	return c, nil
}

// applyIndex fills the served model name, vocab path and tokenizer settings
// from the model index entry for cfg.ModelName.
func applyIndex(cfg *Config) error {
	reg, err := registry.NewFlatFile(cfg.ModelIndex, cfg.ModelCacheDir)
	if err != nil {
		return fmt.Errorf("failed to load model index: %w", err)
	}

	ctx := context.Background()
	if cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ModelTimeout)
		defer cancel()
	}

	info, err := reg.Get(ctx, cfg.ModelName)
	if err != nil {
		return err
	}
	if cfg.VocabPath == "" && cfg.Tokenizer == nil {
		if cfg.VocabPath, err = reg.EnsureVocab(ctx, info.Name); err != nil {
			return err
		}
	}
	if n := info.MaxSequenceLength; n > 0 && (cfg.MaxSequenceLength <= 0 || n < cfg.MaxSequenceLength) {
		cfg.MaxSequenceLength = n
	}
	cfg.CasedVocab = info.Cased
	cfg.ModelName = info.Served()

	logger.Debug("model resolved from index",
		"model", info.Name,
		"served_as", cfg.ModelName,
		"vocab", cfg.VocabPath,
		"max_sequence_length", cfg.MaxSequenceLength)
	return nil
}

func buildTokenizer(cfg Config) (tokenizer.Tokenizer, error) {
	if cfg.Tokenizer != nil {
		return cfg.Tokenizer, nil
	}
	if cfg.VocabPath == "" {
		return nil, nil
	}
	tok, err := tokenizer.Load(cfg.VocabPath,
		tokenizer.WithMaxLength(cfg.MaxSequenceLength),
		tokenizer.WithLowerCase(!cfg.CasedVocab),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return tok, nil
}

func buildModel(cfg Config) (inference.Model, error) {
	if cfg.Model != nil {
		return cfg.Model, nil
	}
	if cfg.ModelURL == "" {
		return nil, nil
	}
	m, err := inference.NewRemote(cfg.ModelURL, cfg.ModelName,
		inference.WithAPIKey(cfg.ModelAPIKey),
		inference.WithTimeout(cfg.ModelTimeout),
		inference.WithMaxConcurrency(cfg.MaxConcurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return m, nil
}

func buildSpeller(cfg Config) (question.Speller, error) {
	switch {
	case cfg.Speller != nil:
		return cfg.Speller, nil
	case !cfg.SpellCheck:
		return nil, nil
	case cfg.DictionaryPath != "":
		d, err := spell.LoadFile(cfg.DictionaryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load dictionary: %w", err)
		}
		return d, nil
	default:
		return spell.Default(), nil
	}
}

// Scrape fetches url and extracts its product record.
func (c *Client) Scrape(ctx context.Context, url string) (rec *product.Record, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveScrape(c.fetcher.Type(), time.Since(start), err)
	}()

	content, err := c.fetcher.Fetch(ctx, url, fetcher.Options{
		UserAgent: c.config.UserAgent,
		Timeout:   c.config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc, err := content.Document()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	rec, err = c.extractor.Extract(doc)
	if err != nil {
		c.observeExtractionError(err)
		return nil, err
	}

	logger.Info("product scraped",
		"url", url,
		"name", rec.Name,
		"features", len(rec.Features),
		"specs", len(rec.Specs),
		"duration", time.Since(start))
	return rec, nil
}

// ExtractHTML extracts a product record from an already fetched page.
func (c *Client) ExtractHTML(r io.Reader) (*product.Record, error) {
	rec, err := c.extractor.ExtractHTML(r)
	if err != nil {
		c.observeExtractionError(err)
		return nil, err
	}
	return rec, nil
}

func (c *Client) observeExtractionError(err error) {
	var ee *product.ExtractionError
	if errors.As(err, &ee) {
		metrics.ObserveExtractionFailure(ee.Field, ee.Reason)
	}
}

// CanAnswer reports whether Ask is available.
func (c *Client) CanAnswer() bool { return c.answerer != nil }

// Ask answers req.Question from req.Context.
func (c *Client) Ask(ctx context.Context, req answer.Request) (*answer.Result, error) {
	if c.answerer == nil {
		return nil, ErrNoModel
	}

	start := time.Now()
	res, err := c.answerer.Ask(ctx, req)
	metrics.ObserveAnswer(c.model.Name(), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	logger.Debug("question answered",
		"question", res.Question,
		"answer", res.Answer,
		"duration", time.Since(start))
	return res, nil
}

// FetcherType returns the active fetcher's type.
func (c *Client) FetcherType() string { return c.fetcher.Type() }

// ModelName returns the inference model name, or "" when Ask is disabled.
func (c *Client) ModelName() string {
	if c.model == nil {
		return ""
	}
	return c.model.Name()
}

// Close releases all resources.
func (c *Client) Close() error {
	var errs []error
	if c.fetcher != nil {
		errs = append(errs, c.fetcher.Close())
	}
	if c.model != nil {
		errs = append(errs, c.model.Close())
	}
	return errors.Join(errs...)
}
