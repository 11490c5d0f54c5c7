package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/shopqa/internal/api"
	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scrape and question answering HTTP API",
	Long: `Start the HTTP API:

  GET  /          banner
  GET  /health    liveness, version and whether /qna is available
  GET  /metrics   Prometheus metrics
  POST /scrape    {"product_url": "..."} -> {"product_data": {...}}
  POST /qna       {"context": "...", "question": "..."} -> answer

/scrape and /qna also accept GET with the same fields as query parameters.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "127.0.0.1:8000", "listen address")
	flags.String("max-request-size", "1MB", "max request body size")
	flags.StringSlice("cors-origins", nil, "allowed CORS origins (default: any)")
	flags.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown timeout")

	_ = viper.BindPFlag("addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("max_request_size", flags.Lookup("max-request-size"))
	_ = viper.BindPFlag("cors_origins", flags.Lookup("cors-origins"))
	_ = viper.BindPFlag("shutdown_timeout", flags.Lookup("shutdown-timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogger(true)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	maxBody, err := parseSize(viper.GetString("max_request_size"))
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = client.Close() }()

	if !client.CanAnswer() {
		logger.Warn("question answering disabled: set model_url and vocab to enable /qna")
	}

	srv := &http.Server{
		Addr: viper.GetString("addr"),
		Handler: api.NewServer(client, api.Config{
			MaxBodyBytes:   maxBody,
			AllowedOrigins: corsOrigins(viper.GetStringSlice("cors_origins")),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return serve(ctx, srv, viper.GetDuration("shutdown_timeout"))
}

// serve runs srv until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "version", version.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// corsOrigins splits comma-joined values, which is how env vars arrive.
func corsOrigins(values []string) []string {
	var out []string
	for _, v := range values {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
