// Package chunker splits document text into token-bounded chunks with
// stable spans.
package chunker

import (
	"strings"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/tokens"
)

// DefaultChunkSize is the default maximum chunk length in tokens.
const DefaultChunkSize = 512

// DefaultOverlap is the default token overlap between consecutive chunks.
const DefaultOverlap = 50

// Splitter splits document content into chunks of at most chunkSize
// tokens, sharing overlap tokens between consecutive chunks. It prefers
// cutting after sentence-ending tokens near the window end and falls
// back to a hard token cut.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must stay within [0, chunkSize)
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split cuts the document content into chunks. Spans are half-open token
// offsets into the document text; identical content always produces the
// same chunk identities.
func (s *Splitter) Split(doc *domain.Document) []domain.Chunk {
	toks := tokens.Split(doc.Content)
	if len(toks) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(toks) {
		end := start + s.chunkSize
		if end >= len(toks) {
			end = len(toks)
		} else if cut, ok := s.sentenceCut(doc.Content, toks, start, end); ok {
			end = cut
		}

		content := doc.Content[toks[start].Start:toks[end-1].End]
		hash := domain.HashContent(content)

		chunks = append(chunks, domain.Chunk{
			ID:          domain.NewChunkID(doc.ID, hash),
			DocumentID:  doc.ID,
			ContentHash: hash,
			Seq:         len(chunks),
			StartOffset: start,
			EndOffset:   end,
			Content:     content,
		})

		if end == len(toks) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// sentenceCut looks backwards from the window end for a sentence-ending
// token and returns the cut position after it. The cut is rejected when
// it would leave too little progress past the overlap.
func (s *Splitter) sentenceCut(content string, toks []tokens.Token, start, end int) (int, bool) {
	// Search at most the trailing eighth of the window.
	lookback := s.chunkSize / 8
	if lookback < 1 {
		lookback = 1
	}

	for i := end - 1; i >= end-lookback && i > start; i-- {
		tok := content[toks[i].Start:toks[i].End]
		if !endsSentence(tok) {
			continue
		}
		cut := i + 1
		if cut-start > s.overlap {
			return cut, true
		}
		break
	}

	return 0, false
}

// endsSentence reports whether a token terminates a sentence.
func endsSentence(tok string) bool {
	tok = strings.TrimRight(tok, `"')]`)
	return strings.HasSuffix(tok, ".") ||
		strings.HasSuffix(tok, "!") ||
		strings.HasSuffix(tok, "?")
}
