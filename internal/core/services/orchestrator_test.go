package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aska-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
)

// pipelineFixture wires an orchestrator over in-memory stores and
// mocked collaborators.
type pipelineFixture struct {
	embedder *mockEmbeddingService
	llm      *mockLLMService
	reranker driven.RerankService
	chunks   driven.ChunkStore
	convs    *memory.ConversationStore
	trace    *recordingTraceSink
	settings domain.PipelineSettings
}

func newPipelineFixture() *pipelineFixture {
	settings := domain.DefaultPipelineSettings()
	settings.EmbeddingDimensions = 3

	return &pipelineFixture{
		embedder: newMockEmbedder(3),
		llm:      &mockLLMService{responses: []string{"The answer [1]."}},
		chunks:   memory.NewChunkStore(domain.MetricCosine),
		convs:    memory.NewConversationStore(),
		trace:    &recordingTraceSink{},
		settings: settings,
	}
}

func (f *pipelineFixture) orchestrator() *Orchestrator {
	return NewOrchestrator(
		f.embedder,
		f.reranker,
		f.convs,
		NewMemoryAssembler(f.convs),
		NewRetriever(f.chunks, f.settings),
		NewGenerator(f.llm, f.settings),
		NewCitationResolver(),
		f.trace,
		f.settings,
	)
}

func (f *pipelineFixture) seedChunks(t *testing.T, embeddings ...[]float32) {
	t.Helper()

	chunks := make([]domain.Chunk, len(embeddings))
	for i, e := range embeddings {
		chunks[i] = domain.Chunk{
			ID:          fmt.Sprintf("doc:%d", i),
			DocumentID:  "doc",
			ContentHash: fmt.Sprintf("hash-%d", i),
			Seq:         i,
			Content:     fmt.Sprintf("chunk %d content", i),
			Embedding:   e,
			Metadata:    map[string]any{"document_name": "notes.md"},
		}
	}
	require.NoError(t, f.chunks.SaveChunks(context.Background(), chunks))
}

func TestAsk_HappyPath(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t,
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0, 1, 0},
	)

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "what is in the notes?",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, answer.ConversationID)
	assert.Equal(t, "The answer [1].", answer.Text)
	assert.False(t, answer.Uncited)
	assert.Empty(t, answer.DegradedStages)
	assert.Equal(t, 3, answer.RetrievedCount)
	assert.Equal(t, 3, answer.RerankedCount)

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "notes.md", answer.Citations[0].DocumentName)

	// Every stage ran exactly once, in pipeline order.
	assert.Equal(t, []domain.Stage{
		domain.StageMemoryAssembled,
		domain.StageRetrieved,
		domain.StageReranked,
		domain.StageGenerated,
		domain.StageCited,
		domain.StagePersisted,
	}, f.trace.stages())
}

func TestAsk_PersistsTurnAtomically(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t, []float32{1, 0, 0})

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "what is in the notes?",
	})
	require.NoError(t, err)

	messages, err := f.convs.Messages(context.Background(), answer.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, domain.RoleUser, messages[0].Role)
	assert.Equal(t, "what is in the notes?", messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, messages[1].Role)
	assert.Equal(t, answer.Text, messages[1].Content)
	assert.Equal(t, answer.Citations, messages[1].Citations)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.trace.stages())
}

func TestAsk_ContinuesExistingConversation(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t, []float32{1, 0, 0})
	f.llm.responses = []string{"First answer.", "Second answer."}

	o := f.orchestrator()
	first, err := o.Ask(context.Background(), driving.AskRequest{Question: "first?"})
	require.NoError(t, err)

	second, err := o.Ask(context.Background(), driving.AskRequest{
		ConversationID: first.ConversationID,
		Question:       "second?",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	messages, err := f.convs.Messages(context.Background(), first.ConversationID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "first?", messages[0].Content)
	assert.Equal(t, "second?", messages[2].Content)
}

func TestAsk_RerankFailureDegrades(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t,
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0.8, 0.2, 0},
		[]float32{0, 1, 0},
	)
	f.reranker = &mockRerankService{rerankErr: domain.ErrUnavailable}
	f.settings.TopKRerank = 2

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "anything",
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.Stage{domain.StageReranked}, answer.DegradedStages)
	assert.True(t, answer.Degraded())
	assert.Equal(t, 4, answer.RetrievedCount)
	assert.Equal(t, 2, answer.RerankedCount)

	// The rerank span carries the degraded flag.
	for _, span := range f.trace.spans {
		if span.Stage == domain.StageReranked {
			assert.True(t, span.Degraded)
		}
	}
}

func TestAsk_NoRerankerTruncatesWithoutDegrading(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t,
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
		[]float32{0.8, 0.2, 0},
		[]float32{0, 1, 0},
	)
	f.settings.TopKRerank = 2

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "anything",
	})
	require.NoError(t, err)

	assert.Empty(t, answer.DegradedStages)
	assert.Equal(t, 2, answer.RerankedCount)
}

func TestAsk_RerankerReordersEvidence(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t,
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
	)
	// The reranker scores the second candidate above the first.
	f.reranker = &mockRerankService{scores: []float64{0.1, 0.9}}
	f.settings.TopKRerank = 1
	f.llm.responses = []string{"Reordered [1]."}

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "anything",
	})
	require.NoError(t, err)

	assert.Empty(t, answer.DegradedStages)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "doc:1", answer.Citations[0].ChunkID)
}

func TestAsk_RetrievalOutageFailsWithoutPersisting(t *testing.T) {
	f := newPipelineFixture()
	f.chunks = &failingChunkStore{
		ChunkStore: memory.NewChunkStore(domain.MetricCosine),
		searchErr:  domain.ErrUnavailable,
	}

	_, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		ConversationID: "c1",
		Question:       "anything",
	})
	require.Error(t, err)

	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StageRetrieved, perr.Stage)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	// The conversation exists but no turn was committed.
	messages, merr := f.convs.Messages(context.Background(), "c1")
	require.NoError(t, merr)
	assert.Empty(t, messages)
}

func TestAsk_GenerationFailureNamesStage(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t, []float32{1, 0, 0})
	f.llm.responses = nil
	f.llm.errs = []error{domain.ErrTransient, domain.ErrTransient}

	_, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "anything",
	})
	require.Error(t, err)

	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StageGenerated, perr.Stage)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestAsk_EmptyCorpusAnswersUncited(t *testing.T) {
	f := newPipelineFixture()
	f.llm.responses = []string{"I could not find anything relevant."}

	answer, err := f.orchestrator().Ask(context.Background(), driving.AskRequest{
		Question: "anything",
	})
	require.NoError(t, err)

	assert.True(t, answer.Uncited)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, 0, answer.RetrievedCount)

	// The uncited answer is still persisted.
	messages, err := f.convs.Messages(context.Background(), answer.ConversationID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestAsk_MemoryFeedsGeneration(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t, []float32{1, 0, 0})

	_, err := f.convs.CreateConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.NoError(t, f.convs.AppendTurn(context.Background(), "c1",
		domain.Message{ID: "m1", ConversationID: "c1", Role: domain.RoleUser, Content: "earlier question"},
		domain.Message{ID: "m2", ConversationID: "c1", Role: domain.RoleAssistant, Content: "earlier answer"},
	))

	_, err = f.orchestrator().Ask(context.Background(), driving.AskRequest{
		ConversationID: "c1",
		Question:       "follow-up?",
	})
	require.NoError(t, err)

	// system + 2 memory messages + user query
	require.Len(t, f.llm.lastChat, 4)
	assert.Equal(t, "earlier question", f.llm.lastChat[1].Content)
	assert.Equal(t, "earlier answer", f.llm.lastChat[2].Content)
}

// cancellingRerank cancels the request during the rerank stage.
type cancellingRerank struct {
	cancel context.CancelFunc
}

func (c *cancellingRerank) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	c.cancel()
	return make([]float64, len(texts)), nil
}

func (c *cancellingRerank) ModelName() string { return "cancelling" }

func (c *cancellingRerank) Ping(context.Context) error { return nil }

func (c *cancellingRerank) Close() error { return nil }

func TestAsk_CancellationStopsAtStageBoundary(t *testing.T) {
	f := newPipelineFixture()
	f.seedChunks(t, []float32{1, 0, 0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.reranker = &cancellingRerank{cancel: cancel}

	_, err := f.orchestrator().Ask(ctx, driving.AskRequest{
		ConversationID: "c1",
		Question:       "anything",
	})
	require.Error(t, err)

	// The machine stopped before generation and persisted nothing.
	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.StageGenerated, perr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.llm.chatCalls)

	messages, merr := f.convs.Messages(context.Background(), "c1")
	require.NoError(t, merr)
	assert.Empty(t, messages)
}

func TestKeyedMutex_SerialisesPerKey(t *testing.T) {
	var km keyedMutex

	unlock := km.lock("a")
	done := make(chan struct{})
	go func() {
		u := km.lock("a")
		u()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second holder acquired the lock while held")
	default:
	}

	unlock()
	<-done

	// Entries are released once unused.
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}
