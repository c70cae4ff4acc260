package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults for the HTTP embedder.
const (
	DefaultMaxAttempts     = 3
	DefaultRetryBackoff    = 5 * time.Second
	DefaultRequestInterval = 200 * time.Millisecond
	DefaultRequestTimeout  = 30 * time.Second
)

// HTTPEmbedderConfig configures an HTTPEmbedder. Endpoint is required; zero
// values elsewhere fall back to defaults.
type HTTPEmbedderConfig struct {
	Endpoint        string
	Token           string
	Dimensions      int
	MaxAttempts     int
	RetryBackoff    time.Duration
	RequestInterval time.Duration
	RequestTimeout  time.Duration
	CacheSize       int
}

// HTTPEmbedder calls a feature-extraction inference endpoint. Requests run
// sequentially and are paced by a rate limiter to respect upstream limits.
// A 503 response means the model is still loading: the embedder backs off
// and retries the same input, up to MaxAttempts.
type HTTPEmbedder struct {
	endpoint    string
	token       string
	dimensions  int
	maxAttempts int
	backoff     time.Duration
	limiter     *rate.Limiter
	client      *http.Client
	cache       *Cache
	logger      *zap.Logger
}

type embedRequest struct {
	Inputs  string       `json:"inputs"`
	Options embedOptions `json:"options"`
}

type embedOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewHTTPEmbedder creates an embedder for the given endpoint.
func NewHTTPEmbedder(cfg HTTPEmbedderConfig, logger *zap.Logger) (*HTTPEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}
	return &HTTPEmbedder{
		endpoint:    cfg.Endpoint,
		token:       cfg.Token,
		dimensions:  cfg.Dimensions,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		limiter:     rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		cache:       cache,
		logger:      logger,
	}, nil
}

// Embed returns the embedding for text. Returns *ServiceError on a
// non-success response (including a model that never finished loading) and
// *FormatError when the response body has an unexpected shape.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e.cache != nil {
		if vec, ok := e.cache.Get(text); ok {
			return vec, nil
		}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		vec, retry, err := e.callOnce(ctx, text)
		if err != nil {
			return nil, err
		}
		if retry {
			e.logger.Debug("embedding model loading, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", e.backoff),
			)
			if attempt == e.maxAttempts {
				break
			}
			select {
			case <-time.After(e.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		if e.cache != nil {
			e.cache.Set(text, vec)
		}
		return vec, nil
	}
	return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable}
}

// callOnce performs one request. retry is true when the service answered 503
// (model loading) and the same input should be retried after a backoff.
func (e *HTTPEmbedder) callOnce(ctx context.Context, text string) (vec []float64, retry bool, err error) {
	body, err := json.Marshal(embedRequest{
		Inputs:  text,
		Options: embedOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, false, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		io.Copy(io.Discard, resp.Body)
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, false, &ServiceError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read embed response: %w", err)
	}
	vec, err = parseVector(raw)
	if err != nil {
		return nil, false, err
	}
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, false, &FormatError{
			Detail: fmt.Sprintf("got %d dimensions, expected %d", len(vec), e.dimensions),
		}
	}
	return vec, false, nil
}

// parseVector accepts a flat numeric vector or a singly-nested
// vector-of-one and rejects anything else.
func parseVector(raw []byte) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, &FormatError{Detail: "empty vector"}
		}
		return flat, nil
	}
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) != 1 || len(nested[0]) == 0 {
			return nil, &FormatError{Detail: fmt.Sprintf("nested response with %d rows", len(nested))}
		}
		return nested[0], nil
	}
	return nil, &FormatError{Detail: "response is neither a vector nor a vector-of-one"}
}

// EmbedBatch embeds texts one at a time, in order. Any failure aborts the
// batch; there is no partial result.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed item %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// Dimensions returns the configured embedding dimension, or 0 when unknown.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HTTPEmbedder.
func (e *HTTPEmbedder) Close() error {
	return nil
}
