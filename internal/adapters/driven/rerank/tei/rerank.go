// Package tei provides a rerank service adapter for a
// text-embeddings-inference server exposing a cross-encoder model.
package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure RerankService implements the interface.
var _ driven.RerankService = (*RerankService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the rerank service.
type Config struct {
	// BaseURL is the inference server base URL (default: http://localhost:8080).
	BaseURL string

	// Model is the cross-encoder model name, informational only; the
	// server decides which model it serves.
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// RerankService scores (query, text) pairs using a cross-encoder served
// over HTTP.
type RerankService struct {
	client  *http.Client
	baseURL string
	model   string
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// rerankResult is one scored entry of the /rerank response. The server
// returns results sorted by score, carrying the input index.
type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewRerankService creates a new rerank service.
func NewRerankService(cfg Config) *RerankService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &RerankService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Rerank scores each candidate text against the query and returns one
// score per input, in input order.
func (s *RerankService) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/rerank",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %v: %w", err, domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			body = []byte("failed to read response")
		}
		return nil, fmt.Errorf("rerank error (status %d): %s: %w", resp.StatusCode, string(body), domain.ErrUnavailable)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Map the sorted response back onto input order.
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank returned index %d for %d inputs", r.Index, len(texts))
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank returned no score for input %d", i)
		}
	}

	return scores, nil
}

// ModelName returns the name of the rerank model being used.
func (s *RerankService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /health endpoint.
func (s *RerankService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("rerank: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("rerank: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rerank: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *RerankService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
