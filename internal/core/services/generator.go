package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// systemPrompt instructs the model to ground every claim in the
// numbered evidence blocks it is given.
const systemPrompt = `You are a careful assistant answering questions from a document corpus.
Base your answer only on the numbered sources provided. After each claim,
cite the supporting source as [n]. If the sources do not contain the
answer, say you do not know rather than guessing.`

// refPattern matches inline evidence references like [2].
var refPattern = regexp.MustCompile(`\[(\d+)\]`)

// EvidenceReference is one inline reference the generator emitted:
// a 1-based evidence index and the byte span of the marker in the
// answer text.
type EvidenceReference struct {
	// Index is the 1-based position in the evidence list.
	Index int

	// Start and End are the half-open marker span in the answer.
	Start int
	End   int
}

// GenerationResult is the generator's output before citation resolution.
type GenerationResult struct {
	// Text is the generated answer.
	Text string

	// References are the inline evidence references found in Text,
	// unvalidated. The citation resolver checks membership.
	References []EvidenceReference
}

// Generator produces answers grounded in the evidence it is shown.
// A failed call is retried once with a shortened context before the
// failure is surfaced.
type Generator struct {
	llm      driven.LLMService
	settings domain.PipelineSettings
}

// NewGenerator creates a generator.
func NewGenerator(llm driven.LLMService, settings domain.PipelineSettings) *Generator {
	return &Generator{llm: llm, settings: settings}
}

// Generate answers the query from the assembled memory and evidence.
func (g *Generator) Generate(
	ctx context.Context,
	query string,
	memory []domain.Message,
	evidence []domain.RetrievalResult,
) (*GenerationResult, error) {
	text, err := g.complete(ctx, query, memory, evidence)
	if err != nil {
		// Retry once with a shortened context: drop the oldest half
		// of memory first, then halve the evidence.
		logger.Warn("Generation failed (%v), retrying with shortened context", err)

		shortMemory := memory[len(memory)/2:]
		shortEvidence := evidence
		if len(shortMemory) == len(memory) && len(evidence) > 1 {
			shortEvidence = evidence[:(len(evidence)+1)/2]
		}

		text, err = g.complete(ctx, query, shortMemory, shortEvidence)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
	}

	return &GenerationResult{
		Text:       text,
		References: parseReferences(text),
	}, nil
}

// complete performs a single generation call.
func (g *Generator) complete(
	ctx context.Context,
	query string,
	memory []domain.Message,
	evidence []domain.RetrievalResult,
) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, g.settings.GenerateTimeout)
	defer cancel()

	messages := make([]driven.ChatMessage, 0, len(memory)+2)
	messages = append(messages, driven.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: systemPrompt,
	})
	for _, msg := range memory {
		messages = append(messages, driven.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, driven.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: formatEvidence(evidence) + "Question: " + query,
	})

	return g.llm.Chat(genCtx, messages, driven.ChatOptions{})
}

// formatEvidence renders the evidence set as numbered source blocks.
func formatEvidence(evidence []domain.RetrievalResult) string {
	if len(evidence) == 0 {
		return "No sources were found for this question.\n\n"
	}

	var b strings.Builder
	b.WriteString("Context from documents:\n\n")
	for i, ev := range evidence {
		name := ev.Chunk.Metadata["document_name"]
		if name == nil || name == "" {
			name = ev.Chunk.DocumentID
		}
		fmt.Fprintf(&b, "[Source %d] %v:\n%s\n\n", i+1, name, ev.Chunk.Content)
	}
	return b.String()
}

// parseReferences extracts inline [n] markers with their spans.
func parseReferences(text string) []EvidenceReference {
	matches := refPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]EvidenceReference, 0, len(matches))
	for _, m := range matches {
		idx, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		refs = append(refs, EvidenceReference{
			Index: idx,
			Start: m[0],
			End:   m[1],
		})
	}
	return refs
}
