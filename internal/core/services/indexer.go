package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/aska-cli/internal/chunker"
	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// Indexer loads documents, splits them into chunks, embeds new chunks
// and upserts them into the chunk store. Indexing is idempotent: a chunk
// whose (document, content hash) identity already exists is skipped
// without touching the embedding service.
type Indexer struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	loaders  driven.LoaderRegistry
	splitter *chunker.Splitter
	settings domain.PipelineSettings
	limiter  *rate.Limiter
}

// NewIndexer creates an indexer.
func NewIndexer(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	loaders driven.LoaderRegistry,
	settings domain.PipelineSettings,
) *Indexer {
	var limiter *rate.Limiter
	if settings.EmbedRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(settings.EmbedRatePerSecond), 1)
	}

	return &Indexer{
		store:    store,
		embedder: embedder,
		loaders:  loaders,
		splitter: chunker.New(
			chunker.WithChunkSize(settings.ChunkSize),
			chunker.WithOverlap(settings.ChunkOverlap),
		),
		settings: settings,
		limiter:  limiter,
	}
}

// IndexPath indexes a file, or every supported file under a directory.
func (ix *Indexer) IndexPath(ctx context.Context, path string) (driving.IndexReport, error) {
	var report driving.IndexReport

	info, err := os.Stat(path)
	if err != nil {
		return report, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return ix.indexFile(ctx, path)
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fileReport, err := ix.indexFile(ctx, p)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				logger.Debug("Skipping unsupported file: %s", p)
				return nil
			}
			return fmt.Errorf("index %s: %w", p, err)
		}
		report.Add(fileReport)
		return nil
	})
	if err != nil {
		return report, err
	}

	return report, nil
}

// indexFile runs the load → chunk → embed → upsert pipeline for a
// single file.
func (ix *Indexer) indexFile(ctx context.Context, path string) (driving.IndexReport, error) {
	var report driving.IndexReport

	loaded, err := ix.loaders.Load(ctx, path)
	if err != nil {
		return report, err
	}

	doc := &domain.Document{
		ID:          domain.NewDocumentID(path, loaded.Text),
		Name:        documentName(path, loaded.Title),
		SourceType:  "file",
		Path:        path,
		Content:     loaded.Text,
		ContentHash: domain.HashContent(loaded.Text),
		Metadata:    loaded.Metadata,
		IngestedAt:  time.Now().UTC(),
	}

	chunks := ix.splitter.Split(doc)
	// Carry the display name on each chunk; citations surface it
	// without a document lookup.
	for i := range chunks {
		chunks[i].Metadata = map[string]any{"document_name": doc.Name}
	}
	report.Documents = 1
	logger.Debug("Indexing %s: %d chunks", path, len(chunks))

	// Partition into already-known and pending chunks.
	var pending []domain.Chunk
	keep := make([]string, 0, len(chunks))
	for _, c := range chunks {
		keep = append(keep, c.ID)

		exists, err := ix.store.HasChunk(ctx, c.DocumentID, c.ContentHash)
		if err != nil {
			return report, fmt.Errorf("check chunk: %w", err)
		}
		if exists {
			report.ChunksSkipped++
			continue
		}
		pending = append(pending, c)
	}

	if err := ix.store.SaveDocument(ctx, doc); err != nil {
		return report, fmt.Errorf("save document: %w", err)
	}

	embedded, failed := ix.embedChunks(ctx, pending)
	report.ChunksFailed = failed

	if len(embedded) > 0 {
		if err := ix.store.SaveChunks(ctx, embedded); err != nil {
			return report, fmt.Errorf("save chunks: %w", err)
		}
		report.ChunksWritten = len(embedded)
	}

	// Content that changed produced new identities; drop the stale ones.
	pruned, err := ix.store.PruneChunks(ctx, doc.ID, keep)
	if err != nil {
		return report, fmt.Errorf("prune chunks: %w", err)
	}
	if pruned > 0 {
		logger.Debug("Pruned %d stale chunks from %s", pruned, doc.ID)
	}

	return report, nil
}

// embedChunks embeds pending chunks, batch first and per chunk with
// bounded backoff when the batch path fails. A chunk that exhausts its
// retries is dropped and reported; the rest of the document continues.
func (ix *Indexer) embedChunks(ctx context.Context, pending []domain.Chunk) ([]domain.Chunk, int) {
	if len(pending) == 0 {
		return nil, 0
	}

	texts := make([]string, len(pending))
	for i := range pending {
		texts[i] = pending[i].Content
	}

	if err := ix.waitEmbedSlot(ctx); err != nil {
		return nil, len(pending)
	}

	// Fast path: one batched call for the whole document.
	batchCtx, cancel := context.WithTimeout(ctx, ix.settings.EmbedTimeout)
	vectors, err := ix.embedder.EmbedBatch(batchCtx, texts)
	cancel()

	if err == nil && len(vectors) == len(pending) {
		embedded := make([]domain.Chunk, 0, len(pending))
		failed := 0
		for i := range pending {
			if len(vectors[i]) != ix.settings.EmbeddingDimensions {
				logger.Warn("Chunk %s: %v", pending[i].ID, domain.ErrDimensionMismatch)
				failed++
				continue
			}
			pending[i].Embedding = vectors[i]
			embedded = append(embedded, pending[i])
		}
		return embedded, failed
	}
	logger.Debug("Batch embedding failed (%v), retrying per chunk", err)

	// Slow path: per-chunk with bounded retry and exponential backoff.
	embedded := make([]domain.Chunk, 0, len(pending))
	failed := 0
	for i := range pending {
		vector, err := ix.embedOne(ctx, pending[i].Content)
		if err != nil {
			logger.Warn("Chunk %s dropped after retries: %v", pending[i].ID, err)
			failed++
			continue
		}
		if len(vector) != ix.settings.EmbeddingDimensions {
			logger.Warn("Chunk %s: %v", pending[i].ID, domain.ErrDimensionMismatch)
			failed++
			continue
		}
		pending[i].Embedding = vector
		embedded = append(embedded, pending[i])
	}

	return embedded, failed
}

// embedOne embeds a single text with bounded retry.
func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	attempts := ix.settings.EmbedRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return retry.DoWithData(
		func() ([]float32, error) {
			if err := ix.waitEmbedSlot(ctx); err != nil {
				return nil, retry.Unrecoverable(err)
			}
			embedCtx, cancel := context.WithTimeout(ctx, ix.settings.EmbedTimeout)
			defer cancel()
			return ix.embedder.Embed(embedCtx, text)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(ix.settings.EmbedRetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// waitEmbedSlot blocks on the embedding rate limiter when configured.
func (ix *Indexer) waitEmbedSlot(ctx context.Context) error {
	if ix.limiter == nil {
		return nil
	}
	return ix.limiter.Wait(ctx)
}

// Watch re-indexes files under path as they change, until ctx is
// cancelled.
func (ix *Indexer) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchTargets(watcher, path); err != nil {
		return err
	}

	logger.Info("Watching %s for changes", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				// New directories need their own watch.
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("Watch %s: %v", event.Name, err)
				}
				continue
			}

			report, err := ix.indexFile(ctx, event.Name)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidInput) {
					logger.Warn("Re-index %s: %v", event.Name, err)
				}
				continue
			}
			logger.Info("Re-indexed %s: %d written, %d skipped",
				event.Name, report.ChunksWritten, report.ChunksSkipped)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// addWatchTargets registers path and, for directories, every
// subdirectory with the watcher.
func addWatchTargets(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}

// documentName picks the display name for a document.
func documentName(path, title string) string {
	if title != "" {
		return title
	}
	return filepath.Base(path)
}
