package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents an ingested source document.
// Identity is derived from the source path and content, so re-ingesting
// an unchanged document always produces the same ID.
type Document struct {
	// ID is the stable identifier: sha-256 of path + content.
	ID string

	// Name is the human-readable name (usually the file base name).
	Name string

	// SourceType describes where the document came from (e.g. "file").
	SourceType string

	// Path is the original location.
	Path string

	// Content is the full ordered text after loading.
	// Chunk spans are offsets into the token stream of this text.
	Content string

	// ContentHash is the sha-256 of Content alone, used to detect
	// unchanged re-ingestion.
	ContentHash string

	// Metadata contains loader-specific key-value pairs.
	Metadata map[string]any

	// IngestedAt is when the document was first indexed.
	IngestedAt time.Time
}

// NewDocumentID derives the stable document identity from path and content.
func NewDocumentID(path, content string) string {
	sum := sha256.Sum256([]byte(path + "\x00" + content))
	return hex.EncodeToString(sum[:16])
}

// HashContent returns the sha-256 hex digest of text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Chunk is a contiguous span of a document's text stored with its
// embedding for retrieval. Chunks are immutable once written; a content
// change produces a new chunk under a new hash.
type Chunk struct {
	// ID is the derived identifier, NewChunkID(DocumentID, ContentHash).
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// ContentHash is the sha-256 of Content. Identity within a document
	// is (DocumentID, ContentHash).
	ContentHash string

	// Seq is the ordinal position within the document.
	Seq int

	// StartOffset and EndOffset are the half-open token span
	// [StartOffset, EndOffset) in the original document.
	StartOffset int
	EndOffset   int

	// Content is the text of this chunk.
	Content string

	// Embedding is the vector representation, fixed dimension for the
	// lifetime of a chunk store.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// NewChunkID derives the chunk identifier from its identity pair.
func NewChunkID(documentID, contentHash string) string {
	return fmt.Sprintf("%s:%s", documentID, contentHash[:16])
}
