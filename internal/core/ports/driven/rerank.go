package driven

import "context"

// RerankService recomputes a finer relevance score per (query, text)
// pair using a cross-encoder style scorer. It is an optional
// collaborator: when it fails, the orchestrator falls back to the
// first-pass retrieval order.
type RerankService interface {
	// Rerank scores each candidate text against the query and returns
	// one score per input, in input order.
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)

	// ModelName returns the name of the rerank model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
