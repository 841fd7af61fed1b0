package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// Retriever answers first-pass nearest-neighbour queries against the
// chunk store. Zero results are a valid empty-evidence outcome; only a
// store outage is an error, and it is surfaced fail-fast without retry.
type Retriever struct {
	store    driven.ChunkStore
	settings domain.PipelineSettings
}

// NewRetriever creates a retriever.
func NewRetriever(store driven.ChunkStore, settings domain.PipelineSettings) *Retriever {
	return &Retriever{store: store, settings: settings}
}

// Retrieve returns the k best candidates for the query embedding,
// ordered by descending similarity with insertion-order tie-breaks.
func (r *Retriever) Retrieve(ctx context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	if len(embedding) != r.settings.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, len(embedding), r.settings.EmbeddingDimensions)
	}
	if k <= 0 {
		k = r.settings.TopKRetrieval
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.settings.RetrieveTimeout)
	defer cancel()

	results, err := r.store.Search(searchCtx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	logger.Debug("Retrieved %d candidates", len(results))
	return results, nil
}
