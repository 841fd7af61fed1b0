package services

import (
	"context"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// ConversationService exposes conversation history.
type ConversationService struct {
	convs driven.ConversationStore
}

// NewConversationService creates a conversation service.
func NewConversationService(convs driven.ConversationStore) *ConversationService {
	return &ConversationService{convs: convs}
}

// List returns all conversations, most recently updated first.
func (s *ConversationService) List(ctx context.Context) ([]domain.Conversation, error) {
	return s.convs.ListConversations(ctx)
}

// History returns a conversation's messages in insertion order.
func (s *ConversationService) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	return s.convs.Messages(ctx, conversationID)
}
