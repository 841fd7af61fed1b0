package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of
// driven.ConversationStore.
type ConversationStore struct {
	mu       sync.RWMutex
	convs    map[string]domain.Conversation
	messages map[string][]domain.Message
}

// NewConversationStore creates an in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convs:    make(map[string]domain.Conversation),
		messages: make(map[string][]domain.Message),
	}
}

// CreateConversation opens a new conversation with the given ID.
func (s *ConversationStore) CreateConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; ok {
		return nil, fmt.Errorf("conversation %q: %w", id, domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	conv := domain.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	s.convs[id] = conv
	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &conv, nil
}

// ListConversations returns all conversations, most recently updated
// first.
func (s *ConversationStore) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]domain.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, c)
	}
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
		}
		return convs[i].ID < convs[j].ID
	})
	return convs, nil
}

// AppendTurn appends the messages to a conversation as one unit, with
// store-assigned sequence numbers.
func (s *ConversationStore) AppendTurn(_ context.Context, conversationID string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[conversationID]
	if !ok {
		return domain.ErrNotFound
	}

	now := time.Now().UTC()
	seq := len(s.messages[conversationID])
	for _, m := range msgs {
		m.ConversationID = conversationID
		m.Seq = seq
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		s.messages[conversationID] = append(s.messages[conversationID], m)
		seq++
	}

	conv.UpdatedAt = now
	s.convs[conversationID] = conv
	return nil
}

// Messages returns the conversation's messages in insertion order.
func (s *ConversationStore) Messages(_ context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.convs[conversationID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out, nil
}

// Close releases resources.
func (s *ConversationStore) Close() error {
	return nil
}
