package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/shopqa/internal/logger"
)

// Tensor names exchanged with the model server.
const (
	InputIDs       = "input_ids"
	TokenTypeIDs   = "token_type_ids"
	AttentionMask  = "attention_mask"
	OutputStart    = "start_logits"
	OutputEnd      = "end_logits"
	datatypeInt64  = "INT64"
	maxErrorDetail = 512
)

// ErrServer indicates the model server answered with a non-2xx status.
var ErrServer = errors.New("model server error")

// Remote calls a model served over the KServe / Triton v2 JSON inference
// protocol (POST {base}/v2/models/{model}/infer).
type Remote struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	sem        *semaphore.Weighted
}

// RemoteOption configures a Remote model.
type RemoteOption func(*remoteConfig)

type remoteConfig struct {
	apiKey         string
	timeout        time.Duration
	maxConcurrency int
	httpClient     *http.Client
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) RemoteOption {
	return func(c *remoteConfig) { c.apiKey = key }
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) RemoteOption {
	return func(c *remoteConfig) { c.timeout = d }
}

// WithMaxConcurrency bounds in-flight inference calls. Zero means unbounded;
// one serializes calls for servers that are not reentrant.
func WithMaxConcurrency(n int) RemoteOption {
	return func(c *remoteConfig) { c.maxConcurrency = n }
}

// WithHTTPClient replaces the HTTP client (the timeout option is then ignored).
func WithHTTPClient(hc *http.Client) RemoteOption {
	return func(c *remoteConfig) { c.httpClient = hc }
}

// NewRemote creates a client for model on the server at baseURL.
func NewRemote(baseURL, model string, opts ...RemoteOption) (*Remote, error) {
	if baseURL == "" {
		return nil, errors.New("model server URL is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}

	cfg := &remoteConfig{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxConcurrency < 0 {
		return nil, fmt.Errorf("max concurrency must not be negative, got %d", cfg.maxConcurrency)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	r := &Remote{
		endpoint:   strings.TrimRight(baseURL, "/") + "/v2/models/" + model + "/infer",
		model:      model,
		apiKey:     cfg.apiKey,
		httpClient: hc,
	}
	if cfg.maxConcurrency > 0 {
		r.sem = semaphore.NewWeighted(int64(cfg.maxConcurrency))
	}
	return r, nil
}

type inferTensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

type inferRequest struct {
	Inputs  []inferTensor       `json:"inputs"`
	Outputs []map[string]string `json:"outputs,omitempty"`
}

type inferResponse struct {
	ModelName string        `json:"model_name"`
	Outputs   []inferTensor `json:"outputs"`
	Error     string        `json:"error,omitempty"`
}

// Logits sends one [1, N] batch and returns the start/end vectors.
func (r *Remote) Logits(ctx context.Context, ids, segments []int) (*Logits, error) {
	if len(ids) != len(segments) {
		return nil, fmt.Errorf("%w: %d ids but %d segment labels", ErrShape, len(ids), len(segments))
	}

	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("wait for inference slot: %w", err)
		}
		defer r.sem.Release(1)
	}

	mask := make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	body, err := json.Marshal(inferRequest{
		Inputs: []inferTensor{
			intTensor(InputIDs, ids),
			intTensor(TokenTypeIDs, segments),
			intTensor(AttentionMask, mask),
		},
		Outputs: []map[string]string{{"name": OutputStart}, {"name": OutputEnd}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	logger.Debug("inference response",
		"model", r.model,
		"status", resp.StatusCode,
		"tokens", len(ids),
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := string(raw)
		if len(detail) > maxErrorDetail {
			detail = detail[:maxErrorDetail]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, strings.TrimSpace(detail))
	}

	var out inferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrServer, out.Error)
	}

	logits := &Logits{}
	for _, t := range out.Outputs {
		switch t.Name {
		case OutputStart:
			logits.Start = toFloat32(t.Data)
		case OutputEnd:
			logits.End = toFloat32(t.Data)
		}
	}
	if err := logits.Validate(len(ids)); err != nil {
		return nil, err
	}
	return logits, nil
}

// Name returns the served model name.
func (r *Remote) Name() string { return r.model }

// Close releases idle connections.
func (r *Remote) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

func intTensor(name string, values []int) inferTensor {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return inferTensor{Name: name, Shape: []int{1, len(values)}, Datatype: datatypeInt64, Data: data}
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
