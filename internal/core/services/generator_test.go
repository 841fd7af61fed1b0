package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

func evidenceOf(contents ...string) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, len(contents))
	for i, c := range contents {
		out[i] = domain.RetrievalResult{
			Chunk: domain.Chunk{
				ID:         "doc:" + c,
				DocumentID: "doc",
				Content:    c,
				Metadata:   map[string]any{"document_name": "notes.md"},
			},
			Score: 1 - float64(i)*0.1,
		}
	}
	return out
}

func TestGenerate_ParsesInlineReferences(t *testing.T) {
	llm := &mockLLMService{responses: []string{"Go is compiled. [1] It has goroutines. [2]"}}
	g := NewGenerator(llm, domain.DefaultPipelineSettings())

	result, err := g.Generate(context.Background(), "what is go", nil, evidenceOf("a", "b"))
	require.NoError(t, err)
	require.Len(t, result.References, 2)
	assert.Equal(t, 1, result.References[0].Index)
	assert.Equal(t, 2, result.References[1].Index)
	// Marker spans address the [n] text itself.
	assert.Equal(t, "[1]", result.Text[result.References[0].Start:result.References[0].End])
}

func TestGenerate_PromptCarriesEvidenceAndMemory(t *testing.T) {
	llm := &mockLLMService{responses: []string{"answer"}}
	g := NewGenerator(llm, domain.DefaultPipelineSettings())

	memory := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}

	_, err := g.Generate(context.Background(), "next question", memory, evidenceOf("go compiles fast"))
	require.NoError(t, err)

	require.Len(t, llm.lastChat, 4)
	assert.Equal(t, "system", llm.lastChat[0].Role)
	assert.Equal(t, "earlier question", llm.lastChat[1].Content)
	assert.Equal(t, "earlier answer", llm.lastChat[2].Content)
	assert.Contains(t, llm.lastChat[3].Content, "[Source 1] notes.md:")
	assert.Contains(t, llm.lastChat[3].Content, "go compiles fast")
	assert.Contains(t, llm.lastChat[3].Content, "Question: next question")
}

func TestGenerate_RetriesWithShortenedContext(t *testing.T) {
	llm := &mockLLMService{
		errs:      []error{domain.ErrTransient},
		responses: []string{"recovered answer"},
	}
	g := NewGenerator(llm, domain.DefaultPipelineSettings())

	memory := []domain.Message{
		{Role: domain.RoleUser, Content: "oldest"},
		{Role: domain.RoleAssistant, Content: "old"},
		{Role: domain.RoleUser, Content: "recent"},
		{Role: domain.RoleAssistant, Content: "newest"},
	}

	result, err := g.Generate(context.Background(), "q", memory, evidenceOf("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "recovered answer", result.Text)
	assert.Equal(t, 2, llm.chatCalls)

	// The retry dropped the oldest half of memory: system + 2 messages + query.
	require.Len(t, llm.lastChat, 4)
	assert.Equal(t, "recent", llm.lastChat[1].Content)
}

func TestGenerate_RetryHalvesEvidenceWhenNoMemory(t *testing.T) {
	llm := &mockLLMService{
		errs:      []error{domain.ErrTransient},
		responses: []string{"ok"},
	}
	g := NewGenerator(llm, domain.DefaultPipelineSettings())

	_, err := g.Generate(context.Background(), "q", nil, evidenceOf("a", "b", "c", "d"))
	require.NoError(t, err)

	// With no memory to drop, the retry halves evidence: sources 1 and 2 only.
	prompt := llm.lastChat[len(llm.lastChat)-1].Content
	assert.Contains(t, prompt, "[Source 2]")
	assert.NotContains(t, prompt, "[Source 3]")
}

func TestGenerate_BothAttemptsFailing(t *testing.T) {
	llm := &mockLLMService{errs: []error{domain.ErrTransient, domain.ErrTransient}}
	g := NewGenerator(llm, domain.DefaultPipelineSettings())

	_, err := g.Generate(context.Background(), "q", nil, evidenceOf("a"))
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, 2, llm.chatCalls)
}

func TestFormatEvidence_EmptySet(t *testing.T) {
	out := formatEvidence(nil)
	assert.Contains(t, out, "No sources were found")
}
