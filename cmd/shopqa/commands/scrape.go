package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shopqa/internal/api"
	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/internal/output"
	"github.com/jmylchreest/shopqa/pkg/product"
	"github.com/jmylchreest/shopqa/pkg/shopqa"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract product records from pages",
	Long: `Fetch product pages and extract the name, prices, rating, feature
bullets and specification table, plus the derived prose context.

Examples:
  # Single page
  shopqa scrape -u "https://shop.example.com/p/phone"

  # Several pages as JSON lines
  shopqa scrape -u "https://shop.example.com/p/a" -u "https://shop.example.com/p/b" --format jsonl

  # A saved page, printing only the context
  shopqa scrape --from-file page.html --format text`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringSliceP("url", "u", nil, "URL(s) to scrape (can be repeated)")
	flags.StringSlice("from-file", nil, "saved HTML page(s) to extract instead of fetching")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")
}

func runScrape(cmd *cobra.Command, args []string) error {
	initLogger(false)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	urls, _ := cmd.Flags().GetStringSlice("url")
	files, _ := cmd.Flags().GetStringSlice("from-file")
	if len(urls) == 0 && len(files) == 0 {
		return cmd.Help()
	}
	logger.Debug("scrape command starting", "urls", len(urls), "files", len(files))

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	var client *shopqa.Client
	if len(urls) > 0 {
		client, err = newClient()
	} else {
		client, err = shopqa.New(clientOptions()...)
	}
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = client.Close() }()

	out := cmd.OutOrStdout()
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	writer, err := output.NewWriter(out, format)
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	var failed int
	emit := func(source string, rec *product.Record, err error) error {
		if err != nil {
			failed++
			logError("%s: %v", source, err)
			return nil
		}
		if werr := writer.Write(scrapeOutput(rec, format)); werr != nil {
			logger.Error("failed to write output", "error", werr)
			return werr
		}
		return nil
	}

	for _, path := range files {
		rec, err := extractFile(client, path)
		if err := emit(path, rec, err); err != nil {
			return err
		}
	}
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		rec, err := client.Scrape(ctx, u)
		if err := emit(u, rec, err); err != nil {
			return err
		}
	}

	total := len(files) + len(urls)
	logger.Info("scrape complete", "pages", total, "failed", failed)
	if err := context.Cause(ctx); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, total)
	}
	return nil
}

func extractFile(client *shopqa.Client, path string) (*product.Record, error) {
	f, err := os.Open(path) //#nosec G304 -- CLI tool reads a user-specified page
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return client.ExtractHTML(f)
}

// scrapeOutput shapes a record like the /scrape response; text output is
// the context alone.
func scrapeOutput(rec *product.Record, format output.Format) any {
	if format == output.FormatText {
		return rec.Context
	}
	return api.ScrapeResponse{ProductData: rec}
}
