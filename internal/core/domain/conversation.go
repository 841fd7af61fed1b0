package domain

import "time"

// MessageRole identifies who produced a message.
type MessageRole string

// Recognised message roles.
const (
	// RoleUser is a message written by the person asking.
	RoleUser MessageRole = "user"

	// RoleAssistant is a generated answer.
	RoleAssistant MessageRole = "assistant"

	// RoleSystem is an instruction message.
	RoleSystem MessageRole = "system"
)

// IsValid returns true if the role is recognised.
func (r MessageRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Conversation is an ordered exchange of messages.
type Conversation struct {
	// ID is externally supplied or generated.
	ID string

	// CreatedAt is when the conversation was opened.
	CreatedAt time.Time

	// UpdatedAt is bumped on every appended turn.
	UpdatedAt time.Time
}

// Message is a single turn entry. Messages are immutable once persisted;
// ordering is by Seq (insertion sequence), not wall clock.
type Message struct {
	// ID is the unique message identifier.
	ID string

	// ConversationID links to the owning Conversation.
	ConversationID string

	// Role is who produced the message.
	Role MessageRole

	// Content is the message text.
	Content string

	// Citations holds the evidence links attached to an assistant
	// message. Empty for user and system messages.
	Citations []Citation

	// Seq is the insertion sequence within the conversation.
	// Assigned by the conversation store on append.
	Seq int

	// CreatedAt is when the message was persisted.
	CreatedAt time.Time
}
