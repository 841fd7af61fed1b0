package domain

// DistanceMetric selects how vector similarity is computed.
// It must match the metric the embeddings were produced under.
type DistanceMetric string

// Available distance metrics.
const (
	// MetricCosine is cosine similarity.
	MetricCosine DistanceMetric = "cosine"

	// MetricInnerProduct is the raw dot product.
	MetricInnerProduct DistanceMetric = "inner_product"
)

// IsValid returns true if the metric is recognised.
func (m DistanceMetric) IsValid() bool {
	switch m {
	case MetricCosine, MetricInnerProduct:
		return true
	default:
		return false
	}
}

// RetrievalResult pairs a chunk with its similarity score for one request.
// Results are ordered descending by score and are never persisted.
type RetrievalResult struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Score is the similarity under the configured metric.
	Score float64
}

// ScoresNonIncreasing reports whether the result sequence is ordered by
// non-increasing score. Retrieval and rerank outputs must satisfy this.
func ScoresNonIncreasing(results []RetrievalResult) bool {
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			return false
		}
	}
	return true
}
