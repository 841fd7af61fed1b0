package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors come from the byText map, falling back to fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	byText   map[string][]float32
	fallback []float32

	embedErr   error
	batchErr   error
	failTexts  map[string]int // text -> remaining failures
	embedCalls int
	batchCalls int
}

func newMockEmbedder(dims int) *mockEmbeddingService {
	fallback := make([]float32, dims)
	fallback[0] = 1
	return &mockEmbeddingService{
		dims:      dims,
		byText:    make(map[string][]float32),
		fallback:  fallback,
		failTexts: make(map[string]int),
	}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	if v, ok := m.byText[text]; ok {
		return v
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if left, ok := m.failTexts[text]; ok && left > 0 {
		m.failTexts[text] = left - 1
		return nil, domain.ErrTransient
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return m.dims }

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService implements driven.LLMService for testing. Responses
// are served in order; errs are consumed first.
type mockLLMService struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	chatCalls int
	lastChat  []driven.ChatMessage
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.next(nil)
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return m.next(messages)
}

func (m *mockLLMService) next(messages []driven.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls++
	m.lastChat = messages

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}
	if len(m.responses) == 0 {
		return "", domain.ErrUnavailable
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(context.Context) error { return nil }

func (m *mockLLMService) Close() error { return nil }

// mockRerankService implements driven.RerankService for testing.
type mockRerankService struct {
	scores    []float64
	rerankErr error
	calls     int
}

func (m *mockRerankService) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.calls++
	if m.rerankErr != nil {
		return nil, m.rerankErr
	}
	if m.scores != nil {
		return m.scores, nil
	}
	scores := make([]float64, len(texts))
	return scores, nil
}

func (m *mockRerankService) ModelName() string { return "mock-rerank" }

func (m *mockRerankService) Ping(context.Context) error { return nil }

func (m *mockRerankService) Close() error { return nil }

// recordingTraceSink captures spans in order.
type recordingTraceSink struct {
	mu    sync.Mutex
	spans []domain.StageSpan
}

func (s *recordingTraceSink) RecordSpan(span domain.StageSpan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, span)
}

func (s *recordingTraceSink) stages() []domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Stage, 0, len(s.spans))
	for _, sp := range s.spans {
		out = append(out, sp.Stage)
	}
	return out
}

// failingChunkStore wraps a ChunkStore and fails Search.
type failingChunkStore struct {
	driven.ChunkStore
	searchErr error
}

func (f *failingChunkStore) Search(context.Context, []float32, int) ([]domain.RetrievalResult, error) {
	return nil, f.searchErr
}
