// Package commands implements the CLI commands for shopqa.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/pkg/shopqa"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "shopqa",
	Short: "Product page scraper with extractive question answering",
	Long: `shopqa turns a product page into a structured record and a prose
context, then answers natural-language questions about that context
with a SQuAD-tuned BERT model served over the KServe v2 protocol.

Examples:
  # Extract a product record
  shopqa scrape -u "https://shop.example.com/p/phone"

  # Ask about a scraped page
  shopqa ask -u "https://shop.example.com/p/phone" -q "what is the battery capacity?" \
      --model-url http://localhost:8080 --vocab vocab.txt

  # Serve the HTTP API
  shopqa serve --addr 127.0.0.1:8000 --model-url http://localhost:8080 --vocab vocab.txt`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.StringVar(&cfgFile, "config", "", "config file (default $HOME/.shopqa.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("quiet", false, "only log errors")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "log as JSON (default for serve)")

	// Fetch settings
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic")
	flags.Duration("timeout", 30*time.Second, "page fetch timeout")
	flags.String("user-agent", "", "User-Agent for page fetches")
	flags.String("max-page-size", "0", "max page size to read (e.g. 5MB, 0=unlimited)")
	flags.String("chrome-path", "", "Chrome binary for dynamic fetch mode (default: search PATH)")

	// Model settings
	flags.String("model-url", "", "KServe v2 model server base URL")
	flags.String("model-name", shopqa.DefaultModelName, "model name on the server")
	flags.String("model-api-key", "", "bearer token for the model server")
	flags.Duration("model-timeout", 30*time.Second, "inference request timeout")
	flags.Int("max-concurrency", 0, "max in-flight inference calls (0=unbounded)")
	flags.String("vocab", "", "path to the model's vocab.txt")
	flags.Bool("cased", false, "the vocab is cased (no lower-casing)")
	flags.String("model-index", "", "model index file (YAML) used to resolve the vocab by model name")
	flags.String("model-cache", "", "vocab cache directory (default $HOME/.cache/shopqa/models)")
	flags.Int("max-seq-length", 512, "max encoded sequence length")
	flags.String("dictionary", "", "spelling dictionary file (default: embedded)")
	flags.Bool("spell-check", true, "correct question spelling before answering")

	for key, name := range map[string]string{
		"debug":           "debug",
		"quiet":           "quiet",
		"log_level":       "log-level",
		"log_json":        "log-json",
		"fetch_mode":      "fetch-mode",
		"timeout":         "timeout",
		"user_agent":      "user-agent",
		"max_page_size":   "max-page-size",
		"chrome_path":     "chrome-path",
		"model_url":       "model-url",
		"model_name":      "model-name",
		"model_api_key":   "model-api-key",
		"model_timeout":   "model-timeout",
		"max_concurrency": "max-concurrency",
		"vocab":           "vocab",
		"cased":           "cased",
		"model_index":     "model-index",
		"model_cache":     "model-cache",
		"max_seq_length":  "max-seq-length",
		"dictionary":      "dictionary",
		"spell_check":     "spell-check",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".shopqa")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. SHOPQA_MODEL_URL
	viper.SetEnvPrefix("SHOPQA")
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger configures logging from the global flags. jsonDefault applies
// when --log-json was not given anywhere.
func initLogger(jsonDefault bool) {
	jsonLogs := jsonDefault
	if viper.IsSet("log_json") {
		jsonLogs = viper.GetBool("log_json")
	}
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		Level: viper.GetString("log_level"),
		JSON:  jsonLogs,
	})
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		logger.Debug("loaded config", "path", cfg)
	}
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
