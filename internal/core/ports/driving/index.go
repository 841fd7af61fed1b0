package driving

import "context"

// IndexReport summarises one indexing run.
type IndexReport struct {
	// Documents is the number of documents processed.
	Documents int

	// ChunksWritten is the number of new chunks embedded and stored.
	ChunksWritten int

	// ChunksSkipped is the number of chunks already present under the
	// same identity.
	ChunksSkipped int

	// ChunksFailed is the number of chunks dropped after exhausting
	// embedding retries.
	ChunksFailed int
}

// Add accumulates another report into r.
func (r *IndexReport) Add(other IndexReport) {
	r.Documents += other.Documents
	r.ChunksWritten += other.ChunksWritten
	r.ChunksSkipped += other.ChunksSkipped
	r.ChunksFailed += other.ChunksFailed
}

// IndexService ingests documents into the chunk store.
type IndexService interface {
	// IndexPath indexes a file, or every supported file under a
	// directory. Indexing is idempotent: unchanged content is skipped.
	IndexPath(ctx context.Context, path string) (IndexReport, error)

	// Watch re-indexes path whenever its files change, until ctx is
	// cancelled.
	Watch(ctx context.Context, path string) error
}
