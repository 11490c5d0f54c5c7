package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	clifetcher "github.com/jmylchreest/shopqa/cmd/shopqa/fetcher"
	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/pkg/fetcher"
	"github.com/jmylchreest/shopqa/pkg/shopqa"
)

// parseSize reads a human byte size such as "5MB". Empty and "0" mean
// unlimited.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// newFetcher builds the page fetcher selected by fetch_mode.
func newFetcher() (fetcher.Fetcher, error) {
	timeout := viper.GetDuration("timeout")
	userAgent := viper.GetString("user_agent")

	mode := viper.GetString("fetch_mode")
	logger.Debug("fetch mode", "mode", mode, "timeout", timeout)

	switch mode {
	case "dynamic":
		cfg := clifetcher.DefaultConfig()
		cfg.Timeout = timeout
		cfg.ChromePath = viper.GetString("chrome_path")
		if userAgent != "" {
			cfg.UserAgent = userAgent
		}
		return clifetcher.NewDynamicFetcher(cfg)
	case "static", "":
		maxPage, err := parseSize(viper.GetString("max_page_size"))
		if err != nil {
			return nil, err
		}
		cfg := fetcher.DefaultStaticConfig()
		cfg.Timeout = timeout
		cfg.MaxBodySize = int(maxPage)
		if userAgent != "" {
			cfg.UserAgent = userAgent
		}
		return fetcher.NewStatic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use 'static' or 'dynamic')", mode)
	}
}

// clientOptions maps the model and spelling settings to client options.
func clientOptions() []shopqa.Option {
	opts := []shopqa.Option{
		shopqa.WithModelAPIKey(viper.GetString("model_api_key")),
		shopqa.WithModelTimeout(viper.GetDuration("model_timeout")),
		shopqa.WithMaxConcurrency(viper.GetInt("max_concurrency")),
		shopqa.WithMaxSequenceLength(viper.GetInt("max_seq_length")),
		shopqa.WithDictionary(viper.GetString("dictionary")),
		shopqa.WithSpellCheck(viper.GetBool("spell_check")),
		shopqa.WithCasedVocab(viper.GetBool("cased")),
	}
	if url := viper.GetString("model_url"); url != "" {
		opts = append(opts, shopqa.WithModelServer(url, viper.GetString("model_name")))
	}
	if index := viper.GetString("model_index"); index != "" {
		opts = append(opts, shopqa.WithModelIndex(index, viper.GetString("model_cache")))
	}
	if vocab := viper.GetString("vocab"); vocab != "" {
		opts = append(opts, shopqa.WithVocab(vocab))
	}
	return opts
}

// newClient builds a client with the configured fetcher and model.
func newClient() (*shopqa.Client, error) {
	f, err := newFetcher()
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	client, err := shopqa.New(append(clientOptions(), shopqa.WithFetcher(f))...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	logger.Debug("client created",
		"fetcher", client.FetcherType(),
		"model", client.ModelName(),
		"can_answer", client.CanAnswer())
	return client, nil
}
