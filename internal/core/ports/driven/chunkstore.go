package driven

import (
	"context"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

// ChunkStore persists documents and their embedded chunks and answers
// k-nearest-neighbour queries over them.
//
// Chunks are keyed by (document_id, content_hash): upserting an existing
// identity is a no-op on content, which makes indexing idempotent.
// Committed chunks are immutable; a content change is a delete plus an
// insert under the new hash.
type ChunkStore interface {
	// SaveDocument stores or updates document metadata.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// HasChunk reports whether a chunk with this identity already
	// exists.
	HasChunk(ctx context.Context, documentID, contentHash string) (bool, error)

	// SaveChunks upserts chunks by identity. Writing an identity that
	// already exists leaves the stored chunk untouched.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunk retrieves a chunk by its derived ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListChunks returns all chunks of a document in sequence order.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// PruneChunks removes the document's chunks whose IDs are not in
	// keep. Used when re-indexing changed content.
	PruneChunks(ctx context.Context, documentID string, keep []string) (int, error)

	// Search returns the k nearest chunks to the query embedding,
	// ordered by descending similarity with ties broken by insertion
	// order. An empty corpus yields an empty result, not an error;
	// a store outage is reported as domain.ErrUnavailable.
	Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error)

	// Close releases resources.
	Close() error
}
