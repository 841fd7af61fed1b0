package services

import (
	"strings"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// snippetLength bounds the excerpt carried on a citation.
const snippetLength = 200

// CitationResolver maps the generator's inline references to concrete
// chunk citations. References to chunks outside the evidence set are
// dropped and logged, never surfaced as a hard failure.
type CitationResolver struct{}

// NewCitationResolver creates a citation resolver.
func NewCitationResolver() *CitationResolver {
	return &CitationResolver{}
}

// Resolve validates each reference against the evidence set and builds
// the citation list. The second return is true when no valid citation
// survived: the answer is then flagged uncited, not rejected.
func (r *CitationResolver) Resolve(
	answer string,
	refs []EvidenceReference,
	evidence []domain.RetrievalResult,
) ([]domain.Citation, bool) {
	var citations []domain.Citation
	seen := make(map[string]bool)

	for _, ref := range refs {
		if ref.Index < 1 || ref.Index > len(evidence) {
			logger.Warn("Inconsistent citation: reference [%d] outside evidence set of %d",
				ref.Index, len(evidence))
			continue
		}

		ev := evidence[ref.Index-1]
		spanStart := supportedSpanStart(answer, ref.Start)

		// One citation per (chunk, span); repeated markers collapse.
		key := ev.Chunk.ID + ":" + answer[spanStart:ref.End]
		if seen[key] {
			continue
		}
		seen[key] = true

		citations = append(citations, domain.Citation{
			ChunkID:      ev.Chunk.ID,
			DocumentName: chunkDocumentName(ev.Chunk),
			AnswerStart:  spanStart,
			AnswerEnd:    ref.End,
			SourceStart:  ev.Chunk.StartOffset,
			SourceEnd:    ev.Chunk.EndOffset,
			Score:        ev.Score,
			Snippet:      snippet(ev.Chunk.Content),
		})
	}

	return citations, len(citations) == 0
}

// supportedSpanStart walks back from the marker to the start of the
// sentence it closes.
func supportedSpanStart(answer string, markerStart int) int {
	for i := markerStart - 1; i >= 0; i-- {
		switch answer[i] {
		case '.', '!', '?', '\n', ']':
			start := i + 1
			for start < markerStart && answer[start] == ' ' {
				start++
			}
			return start
		}
	}
	return 0
}

// chunkDocumentName returns the display name carried on the chunk.
func chunkDocumentName(c domain.Chunk) string {
	if name, ok := c.Metadata["document_name"].(string); ok && name != "" {
		return name
	}
	return c.DocumentID
}

// snippet trims chunk content to a short excerpt.
func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetLength {
		return content
	}
	return content[:snippetLength] + "..."
}
