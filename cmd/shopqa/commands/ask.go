package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/internal/output"
	"github.com/jmylchreest/shopqa/pkg/answer"
	"github.com/jmylchreest/shopqa/pkg/shopqa"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question about a product context",
	Long: `Answer a question with a span copied from the context. The context
comes from --context, --context-file (use - for stdin) or a page
scraped with --url.

Examples:
  shopqa ask --context-file context.txt -q "what is the price?" \
      --model-url http://localhost:8080 --vocab vocab.txt

  shopqa scrape -u "https://shop.example.com/p/phone" --format text | \
      shopqa ask --context-file - -q "how much does it weigh?" --format text`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	flags := askCmd.Flags()
	flags.StringP("question", "q", "", "question to answer (required)")
	flags.String("context", "", "context text")
	flags.String("context-file", "", "file holding the context (- for stdin)")
	flags.StringP("url", "u", "", "scrape this page and use its context")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")

	_ = askCmd.MarkFlagRequired("question")
	askCmd.MarkFlagsMutuallyExclusive("context", "context-file", "url")
}

func runAsk(cmd *cobra.Command, args []string) error {
	initLogger(false)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	question, _ := cmd.Flags().GetString("question")
	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	pageURL, _ := cmd.Flags().GetString("url")
	var client *shopqa.Client
	if pageURL != "" {
		client, err = newClient()
	} else {
		client, err = shopqa.New(clientOptions()...)
	}
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = client.Close() }()

	if !client.CanAnswer() {
		return errors.New("question answering needs --model-url and --vocab")
	}

	text, err := resolveContext(ctx, cmd, pageURL, client)
	if err != nil {
		return err
	}

	res, err := client.Ask(ctx, answer.Request{Context: text, Question: question})
	if err != nil {
		logger.Error("failed to answer", "error", err)
		return err
	}

	writer, err := output.NewWriter(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	if format == output.FormatText {
		return writer.Write(res.Answer)
	}
	return writer.Write(res)
}

// resolveContext reads the context from whichever source flag was given.
func resolveContext(ctx context.Context, cmd *cobra.Command, pageURL string, client *shopqa.Client) (string, error) {
	if pageURL != "" {
		rec, err := client.Scrape(ctx, pageURL)
		if err != nil {
			return "", err
		}
		return rec.Context, nil
	}

	if path, _ := cmd.Flags().GetString("context-file"); path != "" {
		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			f, err := os.Open(path) //#nosec G304 -- CLI tool reads a user-specified file
			if err != nil {
				return "", fmt.Errorf("open context file: %w", err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read context: %w", err)
		}
		return string(data), nil
	}

	text, _ := cmd.Flags().GetString("context")
	if text == "" {
		return "", errors.New("one of --context, --context-file or --url is required")
	}
	return text, nil
}
