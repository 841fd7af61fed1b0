package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// storedChunk keeps the chunk with its insertion order for stable
// tie-breaking.
type storedChunk struct {
	chunk domain.Chunk
	order int
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	metric domain.DistanceMetric
	docs   map[string]domain.Document
	chunks map[string]*storedChunk
	nextID int
}

// NewChunkStore creates an in-memory chunk store.
func NewChunkStore(metric domain.DistanceMetric) *ChunkStore {
	return &ChunkStore{
		metric: metric,
		docs:   make(map[string]domain.Document),
		chunks: make(map[string]*storedChunk),
	}
}

// SaveDocument stores or updates document metadata.
func (s *ChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// HasChunk reports whether a chunk with this identity exists.
func (s *ChunkStore) HasChunk(_ context.Context, documentID, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.chunks[domain.NewChunkID(documentID, contentHash)]
	return ok, nil
}

// SaveChunks upserts chunks by identity. An existing identity keeps its
// stored chunk and insertion order.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, ok := s.chunks[c.ID]; ok {
			continue
		}
		s.chunks[c.ID] = &storedChunk{chunk: c, order: s.nextID}
		s.nextID++
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	chunk := sc.chunk
	return &chunk, nil
}

// ListChunks returns all chunks of a document in sequence order.
func (s *ChunkStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, sc := range s.chunks {
		if sc.chunk.DocumentID == documentID {
			chunks = append(chunks, sc.chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
	return chunks, nil
}

// PruneChunks removes the document's chunks not listed in keep.
func (s *ChunkStore) PruneChunks(_ context.Context, documentID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	pruned := 0
	for id, sc := range s.chunks {
		if sc.chunk.DocumentID == documentID && !keepSet[id] {
			delete(s.chunks, id)
			pruned++
		}
	}
	return pruned, nil
}

// Search scans all embeddings and returns the k nearest chunks, ordered
// by descending similarity with insertion-order tie-breaks.
func (s *ChunkStore) Search(_ context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		sc    *storedChunk
		score float64
	}

	results := make([]scored, 0, len(s.chunks))
	for _, sc := range s.chunks {
		if len(sc.chunk.Embedding) != len(embedding) {
			continue
		}
		results = append(results, scored{sc: sc, score: Similarity(embedding, sc.chunk.Embedding, s.metric)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].sc.order < results[j].sc.order
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]domain.RetrievalResult, 0, k)
	for _, r := range results[:k] {
		out = append(out, domain.RetrievalResult{Chunk: r.sc.chunk, Score: r.score})
	}
	return out, nil
}

// Close releases resources.
func (s *ChunkStore) Close() error {
	return nil
}

// Similarity computes the score of two vectors under the metric.
func Similarity(a, b []float32, metric domain.DistanceMetric) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if metric == domain.MetricInnerProduct {
		return dot
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
