package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/logger"
	"github.com/custodia-labs/aska-cli/internal/tokens"
)

// MemoryAssembler produces a bounded-size context of prior turns.
// Selection is the maximal suffix of the conversation whose combined
// token count stays within the budget, so a larger budget never excludes
// a message a smaller budget included.
type MemoryAssembler struct {
	convs driven.ConversationStore
}

// NewMemoryAssembler creates a memory assembler.
func NewMemoryAssembler(convs driven.ConversationStore) *MemoryAssembler {
	return &MemoryAssembler{convs: convs}
}

// Assemble returns the most recent messages of the conversation that fit
// the token budget, in insertion order. A conversation with no prior
// messages yields an empty context, not an error.
func (m *MemoryAssembler) Assemble(ctx context.Context, conversationID string, tokenBudget int) ([]domain.Message, error) {
	msgs, err := m.convs.Messages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Walk backwards, admitting whole messages until the budget runs
	// out.
	total := 0
	cut := len(msgs)
	for cut > 0 {
		cost := tokens.Count(msgs[cut-1].Content)
		if total+cost > tokenBudget {
			break
		}
		total += cost
		cut--
	}

	logger.Debug("Assembled %d of %d messages (%d tokens, budget %d)",
		len(msgs)-cut, len(msgs), total, tokenBudget)

	return msgs[cut:], nil
}
