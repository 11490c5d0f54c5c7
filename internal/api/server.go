// Package api serves the scrape and question-answering endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/shopqa/internal/metrics"
	"github.com/jmylchreest/shopqa/pkg/answer"
	"github.com/jmylchreest/shopqa/pkg/product"
)

// Service is the work behind the endpoints. *shopqa.Client implements it.
type Service interface {
	Scrape(ctx context.Context, url string) (*product.Record, error)
	Ask(ctx context.Context, req answer.Request) (*answer.Result, error)
	CanAnswer() bool
}

// Config holds server settings.
type Config struct {
	MaxBodyBytes   int64    // request body cap; 0 means 1 MiB
	AllowedOrigins []string // CORS origins; empty allows any
}

const defaultMaxBodyBytes = 1 << 20

// Server is the HTTP API server for shopqa.
type Server struct {
	router   chi.Router
	svc      Service
	cfg      Config
	validate *validator.Validate
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Service, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		svc:      svc,
		cfg:      cfg,
		validate: validate,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger())
	r.Use(metrics.Middleware())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BodyLimit(s.cfg.MaxBodyBytes))

		// Clients send JSON bodies on GET as well as POST.
		r.Get("/scrape", s.handleScrape)
		r.Post("/scrape", s.handleScrape)
		r.Get("/qna", s.handleQnA)
		r.Post("/qna", s.handleQnA)
	})

	s.router = r
}
