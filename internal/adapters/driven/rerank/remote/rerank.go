// Package remote provides a rerank service adapter for HTTP cross-encoder
// endpoints that follow the common /v1/rerank shape (Jina, Cohere, TEI,
// vLLM and LiteLLM serving bge-reranker).
package remote

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

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/ratelimit"
)

// Ensure Service implements the interface.
var _ driven.RerankService = (*Service)(nil)

// Default configuration values.
const (
	DefaultModel   = "bge-reranker-v2-m3"
	DefaultTimeout = 15 * time.Second
)

// ErrMissingBaseURL is returned when no endpoint is configured.
var ErrMissingBaseURL = errors.New("rerank: base URL is required")

// Config holds configuration for the rerank service.
type Config struct {
	// BaseURL is the server address; /v1/rerank is appended unless the URL
	// already ends in /rerank.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the reranking model (default: bge-reranker-v2-m3).
	Model string

	// Timeout bounds one call (default: 15s).
	Timeout time.Duration

	// Limiter throttles requests. Nil means unthrottled.
	Limiter *ratelimit.Limiter
}

// Service scores documents against a query with a remote cross-encoder.
type Service struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
	limiter  *ratelimit.Limiter
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int      `json:"index"`
		RelevanceScore *float64 `json:"relevance_score"`
		Score          *float64 `json:"score"`
	} `json:"results"`
}

// New creates a rerank service.
func New(cfg Config) (*Service, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	endpoint := base
	if !strings.HasSuffix(endpoint, "/rerank") {
		endpoint += "/v1/rerank"
	}

	return &Service{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		limiter:  cfg.Limiter,
	}, nil
}

// ModelName returns the reranking model name.
func (s *Service) ModelName() string {
	return s.model
}

// Score returns one score per document. Documents the server leaves out of
// its results score 0.
func (s *Service) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     s.model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &domain.RerankServiceError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.RerankServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.RerankServiceError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.RerankServiceError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		s.limiter.Backoff(ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RerankServiceError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(respBody))),
		}
	}

	var parsed rerankResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &domain.RerankServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	scores := make([]float64, len(documents))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, &domain.RerankServiceError{
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("result index %d out of range", r.Index),
			}
		}
		switch {
		case r.RelevanceScore != nil:
			scores[r.Index] = *r.RelevanceScore
		case r.Score != nil:
			scores[r.Index] = *r.Score
		}
	}
	return scores, nil
}
