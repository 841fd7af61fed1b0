package domain

import (
	"fmt"
	"time"
)

// PipelineSettings is the immutable configuration passed into each
// component at construction. It is loaded once from the config store and
// never mutated afterwards.
type PipelineSettings struct {
	// ChunkSize is the maximum chunk length in tokens.
	ChunkSize int

	// ChunkOverlap is the token overlap between consecutive chunks.
	// Must be within [0, ChunkSize).
	ChunkOverlap int

	// EmbeddingDimensions is the fixed vector dimension D for the
	// lifetime of the chunk store.
	EmbeddingDimensions int

	// Metric is the similarity metric for retrieval.
	Metric DistanceMetric

	// TopKRetrieval is the candidate count from first-pass retrieval.
	TopKRetrieval int

	// TopKRerank is the evidence count after reranking.
	// Must not exceed TopKRetrieval.
	TopKRerank int

	// MemoryTokenBudget bounds the assembled conversation context.
	MemoryTokenBudget int

	// RetrieveTimeout bounds the chunk store query.
	RetrieveTimeout time.Duration

	// RerankTimeout bounds the rerank collaborator call.
	RerankTimeout time.Duration

	// GenerateTimeout bounds a single generation call.
	GenerateTimeout time.Duration

	// EmbedTimeout bounds a single embedding call.
	EmbedTimeout time.Duration

	// EmbedRetryAttempts bounds embedding retries per chunk during
	// indexing.
	EmbedRetryAttempts int

	// EmbedRetryBaseDelay is the initial backoff delay; it doubles per
	// attempt.
	EmbedRetryBaseDelay time.Duration

	// EmbedRatePerSecond throttles embedding requests. Zero disables
	// throttling.
	EmbedRatePerSecond float64
}

// DefaultPipelineSettings returns settings with sensible defaults.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		ChunkSize:           512,
		ChunkOverlap:        50,
		EmbeddingDimensions: 768, // nomic-embed-text default
		Metric:              MetricCosine,
		TopKRetrieval:       10,
		TopKRerank:          3,
		MemoryTokenBudget:   1024,
		RetrieveTimeout:     10 * time.Second,
		RerankTimeout:       15 * time.Second,
		GenerateTimeout:     120 * time.Second,
		EmbedTimeout:        30 * time.Second,
		EmbedRetryAttempts:  3,
		EmbedRetryBaseDelay: 500 * time.Millisecond,
		EmbedRatePerSecond:  0,
	}
}

// Validate checks the settings invariants.
func (s PipelineSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be within [0, chunk size)", ErrInvalidInput)
	}
	if s.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: embedding dimensions must be positive", ErrInvalidInput)
	}
	if !s.Metric.IsValid() {
		return fmt.Errorf("%w: unknown distance metric %q", ErrInvalidInput, s.Metric)
	}
	if s.TopKRetrieval <= 0 {
		return fmt.Errorf("%w: top-k retrieval must be positive", ErrInvalidInput)
	}
	if s.TopKRerank <= 0 || s.TopKRerank > s.TopKRetrieval {
		return fmt.Errorf("%w: top-k rerank must be within (0, top-k retrieval]", ErrInvalidInput)
	}
	if s.MemoryTokenBudget < 0 {
		return fmt.Errorf("%w: memory token budget cannot be negative", ErrInvalidInput)
	}
	return nil
}
