package driving

import (
	"context"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

// ConversationService exposes conversation history to external actors.
type ConversationService interface {
	// List returns all conversations, most recently updated first.
	List(ctx context.Context) ([]domain.Conversation, error)

	// History returns a conversation's messages in insertion order.
	History(ctx context.Context, conversationID string) ([]domain.Message, error)
}
