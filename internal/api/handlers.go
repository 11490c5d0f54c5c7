package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/shopqa/internal/logger"
	"github.com/jmylchreest/shopqa/internal/version"
	"github.com/jmylchreest/shopqa/pkg/answer"
	"github.com/jmylchreest/shopqa/pkg/model/tokenizer"
	"github.com/jmylchreest/shopqa/pkg/product"
	"github.com/jmylchreest/shopqa/pkg/shopqa"
)

// Banner is the body of GET /.
const Banner = "Product question answering API. POST /scrape with a product_url, then POST /qna with the returned context and a question."

// ScrapeRequest is the body of /scrape.
type ScrapeRequest struct {
	ProductURL string `json:"product_url" validate:"required,url"`
}

// ScrapeResponse wraps the extracted record.
type ScrapeResponse struct {
	ProductData *product.Record `json:"product_data" yaml:"product_data"`
}

// QnARequest is the body of /qna.
type QnARequest struct {
	Context  string `json:"context" validate:"required"`
	Question string `json:"question"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Field  string            `json:"field,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": Banner})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"qna":     s.svc.CanAnswer(),
		"version": version.Get(),
	})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := decodeRequest(r, &req, func(q map[string][]string) {
		req.ProductURL = first(q["product_url"])
	}); err != nil {
		s.requestError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.requestError(w, r, err)
		return
	}

	rec, err := s.svc.Scrape(r.Context(), req.ProductURL)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScrapeResponse{ProductData: rec})
}

func (s *Server) handleQnA(w http.ResponseWriter, r *http.Request) {
	var req QnARequest
	if err := decodeRequest(r, &req, func(q map[string][]string) {
		req.Context = first(q["context"])
		req.Question = first(q["question"])
	}); err != nil {
		s.requestError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.requestError(w, r, err)
		return
	}

	res, err := s.svc.Ask(r.Context(), answer.Request{Context: req.Context, Question: req.Question})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeRequest reads a JSON body into dst. A request without a body falls
// back to its query string.
func decodeRequest(r *http.Request, dst any, fromQuery func(map[string][]string)) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		fromQuery(r.URL.Query())
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// requestError answers malformed or invalid requests.
func (s *Server) requestError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, r, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fields})
		return
	}

	writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// serviceError maps pipeline failures onto HTTP statuses.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		extractErr *product.ExtractionError
		answerErr  *answer.AnswerError
	)

	switch {
	case errors.As(err, &extractErr):
		writeError(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Field:  extractErr.Field,
			Reason: extractErr.Reason,
		})
	case errors.As(err, &answerErr):
		writeError(w, r, http.StatusInternalServerError, errorResponse{Error: err.Error(), Reason: answerErr.Reason})
	case errors.Is(err, tokenizer.ErrSequenceTooLong):
		writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, shopqa.ErrNoModel):
		writeError(w, r, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, shopqa.ErrFetch):
		writeError(w, r, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		writeError(w, r, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, body errorResponse) {
	level := logger.Warn
	if status >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request failed", "path", r.URL.Path, "status", status, "error", body.Error)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed validation '%s'", fe.Tag())
	}
}
