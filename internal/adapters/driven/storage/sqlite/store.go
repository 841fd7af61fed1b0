package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/aska-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// chunk and conversation store interfaces through wrapper types.
type Store struct {
	db     *sql.DB
	path   string
	metric domain.DistanceMetric
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.aska/data.
func NewStore(dataDir string, metric domain.DistanceMetric) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".aska", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "aska.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:     db,
		path:   dbPath,
		metric: metric,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// ConversationStore returns a ConversationStore interface backed by this store.
func (s *Store) ConversationStore() driven.ConversationStore {
	return &conversationStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// SaveDocument stores or updates document metadata.
func (s *chunkStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, source_type, path, content, content_hash, metadata, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source_type = excluded.source_type,
			path = excluded.path,
			content = excluded.content,
			content_hash = excluded.content_hash,
			metadata = excluded.metadata
	`, doc.ID, doc.Name, doc.SourceType, doc.Path, doc.Content,
		doc.ContentHash, string(metadataJSON), doc.IngestedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *chunkStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, source_type, path, content, content_hash, metadata, ingested_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var metadataJSON sql.NullString
	if err := row.Scan(&doc.ID, &doc.Name, &doc.SourceType, &doc.Path, &doc.Content,
		&doc.ContentHash, &metadataJSON, &doc.IngestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}

	return &doc, nil
}

// HasChunk reports whether a chunk with this identity already exists.
func (s *chunkStore) HasChunk(ctx context.Context, documentID, contentHash string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE id = ?",
		domain.NewChunkID(documentID, contentHash)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking chunk: %w", err)
	}
	return count > 0, nil
}

// SaveChunks upserts chunks by identity. Writing an identity that
// already exists leaves the stored chunk untouched.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content_hash, seq, start_offset, end_offset, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.ContentHash,
			chunk.Seq, chunk.StartOffset, chunk.EndOffset, chunk.Content,
			embeddingBlob, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by its derived ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, content_hash, seq, start_offset, end_offset, content, embedding, metadata
		FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunkRow(row)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// ListChunks returns all chunks of a document in sequence order.
func (s *chunkStore) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, content_hash, seq, start_offset, end_offset, content, embedding, metadata
		FROM chunks WHERE document_id = ?
		ORDER BY seq
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// PruneChunks removes the document's chunks whose IDs are not in keep.
func (s *chunkStore) PruneChunks(ctx context.Context, documentID string, keep []string) (int, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("querying chunk ids: %w", err)
	}

	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning chunk id: %w", err)
		}
		if !keepSet[id] {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating chunk ids: %w", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	pruned := 0
	for _, id := range stale {
		res, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
		if err != nil {
			return 0, fmt.Errorf("deleting chunk: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting deleted chunks: %w", err)
		}
		pruned += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return pruned, nil
}

// Search scans all chunk embeddings and returns the k nearest chunks,
// ordered by descending similarity. Ties are broken by insertion order
// (rowid). A store failure is reported as domain.ErrUnavailable so
// callers can distinguish an outage from an empty corpus.
func (s *chunkStore) Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, content_hash, seq, start_offset, end_offset, content, embedding, metadata
		FROM chunks
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %v: %w", err, domain.ErrUnavailable)
	}
	defer rows.Close()

	type scored struct {
		chunk domain.Chunk
		score float64
		order int
	}

	var results []scored
	order := 0
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if len(chunk.Embedding) != len(embedding) {
			continue
		}
		results = append(results, scored{
			chunk: *chunk,
			score: similarity(embedding, chunk.Embedding, s.store.metric),
			order: order,
		})
		order++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %v: %w", err, domain.ErrUnavailable)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].order < results[j].order
	})

	if k > len(results) {
		k = len(results)
	}
	out := make([]domain.RetrievalResult, 0, k)
	for _, r := range results[:k] {
		out = append(out, domain.RetrievalResult{Chunk: r.chunk, Score: r.score})
	}
	return out, nil
}

// Close is a no-op; the owning Store manages the connection.
func (s *chunkStore) Close() error {
	return nil
}

// ==================== Conversation Store ====================

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// CreateConversation opens a new conversation with the given ID.
func (s *conversationStore) CreateConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at)
		VALUES (?, ?, ?)
	`, id, now, now)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return &domain.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}

// GetConversation retrieves a conversation by ID.
func (s *conversationStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id)

	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *conversationStore) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.Conversation //nolint:prealloc // size unknown from query
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	return convs, nil
}

// AppendTurn appends the messages to a conversation as one atomic unit.
// Sequence numbers follow the current maximum; the conversation's
// updated_at is bumped in the same transaction.
func (s *conversationStore) AppendTurn(ctx context.Context, conversationID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE id = ?", conversationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}

	var nextSeq int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE conversation_id = ?",
		conversationID).Scan(&nextSeq)
	if err != nil {
		return fmt.Errorf("getting next sequence: %w", err)
	}

	now := time.Now().UTC()
	for _, m := range msgs {
		citationsJSON, err := json.Marshal(m.Citations)
		if err != nil {
			return fmt.Errorf("marshalling citations: %w", err)
		}

		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, role, content, citations, seq, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, m.ID, conversationID, string(m.Role), m.Content, string(citationsJSON), nextSeq, createdAt)
		if err != nil {
			return fmt.Errorf("saving message: %w", err)
		}
		nextSeq++
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", now, conversationID)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Messages returns the conversation's messages in insertion order.
func (s *conversationStore) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, citations, seq, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message //nolint:prealloc // size unknown from query
	for rows.Next() {
		var m domain.Message
		var role string
		var citationsJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content,
			&citationsJSON, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}

		m.Role = domain.MessageRole(role)
		if citationsJSON.Valid && citationsJSON.String != "" && citationsJSON.String != "null" {
			if err := json.Unmarshal([]byte(citationsJSON.String), &m.Citations); err != nil {
				return nil, fmt.Errorf("unmarshalling citations: %w", err)
			}
		}
		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return msgs, nil
}

// Close is a no-op; the owning Store manages the connection.
func (s *conversationStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// similarity computes the score of two equal-length vectors under the
// metric. Cosine of a zero vector is defined as zero.
func similarity(a, b []float32, metric domain.DistanceMetric) float64 {
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

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON sql.NullString

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ContentHash, &chunk.Seq,
		&chunk.StartOffset, &chunk.EndOffset, &chunk.Content,
		&embeddingBlob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

// scanChunkRow scans a chunk from *sql.Row.
func scanChunkRow(row *sql.Row) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON sql.NullString

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ContentHash, &chunk.Seq,
		&chunk.StartOffset, &chunk.EndOffset, &chunk.Content,
		&embeddingBlob, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
