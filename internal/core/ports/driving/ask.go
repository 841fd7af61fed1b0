package driving

import (
	"context"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

// AskRequest is one question against the corpus.
type AskRequest struct {
	// ConversationID selects the conversation to continue. Empty
	// starts a new conversation.
	ConversationID string

	// Question is the user's natural-language question.
	Question string
}

// QueryService answers questions with cited evidence.
type QueryService interface {
	// Ask runs the query pipeline for one request and returns the
	// answer with its citations. The returned answer's turn has been
	// committed to the conversation.
	Ask(ctx context.Context, req AskRequest) (*domain.Answer, error)
}
