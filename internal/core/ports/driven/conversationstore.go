package driven

import (
	"context"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

// ConversationStore persists conversations as append-only message logs.
// Message order within a conversation is the insertion sequence and is
// load-bearing for memory assembly.
type ConversationStore interface {
	// CreateConversation opens a new conversation with the given ID.
	CreateConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// ListConversations returns all conversations, most recently
	// updated first.
	ListConversations(ctx context.Context) ([]domain.Conversation, error)

	// AppendTurn appends the given messages to a conversation as one
	// atomic unit: either all are durably recorded or none are.
	// Sequence numbers are assigned by the store.
	AppendTurn(ctx context.Context, conversationID string, msgs ...domain.Message) error

	// Messages returns the conversation's messages in insertion order.
	Messages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// Close releases resources.
	Close() error
}
