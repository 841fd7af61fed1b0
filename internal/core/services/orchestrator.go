package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.QueryService = (*Orchestrator)(nil)

// Orchestrator runs the query pipeline state machine:
//
//	Received → MemoryAssembled → Retrieved → Reranked → Generated →
//	Cited → Persisted
//
// with Failed reachable from any non-terminal state. Each in-flight
// request progresses through its own instance of the machine; the only
// cross-request coordination is the per-conversation serialisation of
// the append step.
type Orchestrator struct {
	embedder  driven.EmbeddingService
	reranker  driven.RerankService
	convs     driven.ConversationStore
	memory    *MemoryAssembler
	retriever *Retriever
	generator *Generator
	resolver  *CitationResolver
	trace     driven.TraceSink
	settings  domain.PipelineSettings

	// convLocks serialises turn appends per conversation id.
	convLocks keyedMutex
}

// NewOrchestrator creates a query orchestrator. The reranker is optional
// (can be nil); the pipeline then always uses retrieval order. The trace
// sink is optional as well.
func NewOrchestrator(
	embedder driven.EmbeddingService,
	reranker driven.RerankService,
	convs driven.ConversationStore,
	memory *MemoryAssembler,
	retriever *Retriever,
	generator *Generator,
	resolver *CitationResolver,
	trace driven.TraceSink,
	settings domain.PipelineSettings,
) *Orchestrator {
	return &Orchestrator{
		embedder:  embedder,
		reranker:  reranker,
		convs:     convs,
		memory:    memory,
		retriever: retriever,
		generator: generator,
		resolver:  resolver,
		trace:     trace,
		settings:  settings,
	}
}

// run holds the per-request state machine.
type run struct {
	o     *Orchestrator
	stage domain.Stage
}

// advance executes one stage: it stops at the boundary when the request
// was cancelled, runs fn, records a span and moves the machine forward.
// On error the machine transitions to Failed and no later stage runs.
func (r *run) advance(ctx context.Context, to domain.Stage, degraded *bool, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		r.stage = domain.StageFailed
		return domain.NewPipelineError(to, err)
	}
	if !r.stage.CanTransition(to) {
		from := r.stage
		r.stage = domain.StageFailed
		return domain.NewPipelineError(to, fmt.Errorf("illegal transition %s to %s", from, to))
	}

	start := time.Now()
	err := fn(ctx)

	span := domain.StageSpan{
		Stage:    to,
		Duration: time.Since(start),
		Err:      err,
	}
	if degraded != nil {
		span.Degraded = *degraded
	}
	if r.o.trace != nil {
		r.o.trace.RecordSpan(span)
	}

	if err != nil {
		r.stage = domain.StageFailed
		return domain.NewPipelineError(to, err)
	}
	r.stage = to
	return nil
}

// Ask runs the full pipeline for one request. On success the user and
// assistant messages have been committed as one atomic turn; on failure
// nothing was persisted and the caller receives a PipelineError naming
// the failed stage.
func (o *Orchestrator) Ask(ctx context.Context, req driving.AskRequest) (*domain.Answer, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	conversationID, err := o.ensureConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}

	r := &run{o: o, stage: domain.StageReceived}
	logger.Section("Query Pipeline")
	logger.Debug("Conversation %s: %q", conversationID, req.Question)

	var (
		memory     []domain.Message
		candidates []domain.RetrievalResult
		evidence   []domain.RetrievalResult
		generated  *GenerationResult
		citations  []domain.Citation
		uncited    bool
		degraded   []domain.Stage
	)

	// Memory assembly.
	err = r.advance(ctx, domain.StageMemoryAssembled, nil, func(ctx context.Context) error {
		var err error
		memory, err = o.memory.Assemble(ctx, conversationID, o.settings.MemoryTokenBudget)
		return err
	})
	if err != nil {
		return nil, err
	}

	// First-pass retrieval.
	err = r.advance(ctx, domain.StageRetrieved, nil, func(ctx context.Context) error {
		embedCtx, cancel := context.WithTimeout(ctx, o.settings.EmbedTimeout)
		defer cancel()

		queryEmbedding, err := o.embedder.Embed(embedCtx, req.Question)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}

		candidates, err = o.retriever.Retrieve(ctx, queryEmbedding, o.settings.TopKRetrieval)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Rerank, with documented fallback to retrieval order.
	rerankDegraded := false
	err = r.advance(ctx, domain.StageReranked, &rerankDegraded, func(ctx context.Context) error {
		evidence, rerankDegraded = o.rerank(ctx, req.Question, candidates)
		if rerankDegraded {
			degraded = append(degraded, domain.StageReranked)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Generation.
	err = r.advance(ctx, domain.StageGenerated, nil, func(ctx context.Context) error {
		var err error
		generated, err = o.generator.Generate(ctx, req.Question, memory, evidence)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Citation resolution. Invalid references are dropped inside the
	// resolver; this stage cannot fail.
	err = r.advance(ctx, domain.StageCited, nil, func(_ context.Context) error {
		citations, uncited = o.resolver.Resolve(generated.Text, generated.References, evidence)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Persist the turn: both messages or neither.
	err = r.advance(ctx, domain.StagePersisted, nil, func(ctx context.Context) error {
		unlock := o.convLocks.lock(conversationID)
		defer unlock()

		now := time.Now().UTC()
		userMsg := domain.Message{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Role:           domain.RoleUser,
			Content:        req.Question,
			CreatedAt:      now,
		}
		assistantMsg := domain.Message{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			Role:           domain.RoleAssistant,
			Content:        generated.Text,
			Citations:      citations,
			CreatedAt:      now,
		}
		return o.convs.AppendTurn(ctx, conversationID, userMsg, assistantMsg)
	})
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		ConversationID: conversationID,
		Text:           generated.Text,
		Citations:      citations,
		Uncited:        uncited,
		DegradedStages: degraded,
		RetrievedCount: len(candidates),
		RerankedCount:  len(evidence),
	}, nil
}

// rerank narrows candidates to the evidence set. When the reranker is
// missing, fails or times out, the retrieval order truncated to
// TopKRerank is used instead and the stage is marked degraded.
func (o *Orchestrator) rerank(ctx context.Context, query string, candidates []domain.RetrievalResult) ([]domain.RetrievalResult, bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	truncate := func() []domain.RetrievalResult {
		k := o.settings.TopKRerank
		if k > len(candidates) {
			k = len(candidates)
		}
		return candidates[:k]
	}

	if o.reranker == nil {
		return truncate(), false
	}

	rerankCtx, cancel := context.WithTimeout(ctx, o.settings.RerankTimeout)
	defer cancel()

	texts := make([]string, len(candidates))
	for i := range candidates {
		texts[i] = candidates[i].Chunk.Content
	}

	scores, err := o.reranker.Rerank(rerankCtx, query, texts)
	if err != nil || len(scores) != len(candidates) {
		logger.Warn("Rerank failed (%v), falling back to retrieval order", err)
		return truncate(), true
	}

	// Re-order the candidate set by the finer score. The output is a
	// subset of the input by construction; ties keep retrieval order.
	rescored := make([]domain.RetrievalResult, len(candidates))
	for i := range candidates {
		rescored[i] = domain.RetrievalResult{Chunk: candidates[i].Chunk, Score: scores[i]}
	}
	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Score > rescored[j].Score
	})

	k := o.settings.TopKRerank
	if k > len(rescored) {
		k = len(rescored)
	}
	return rescored[:k], false
}

// ensureConversation resolves or creates the conversation for a request.
func (o *Orchestrator) ensureConversation(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}

	_, err := o.convs.GetConversation(ctx, id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	if _, err := o.convs.CreateConversation(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

// keyedMutex provides one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
