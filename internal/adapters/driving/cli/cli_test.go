package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driving"
)

// fakeQueryService returns a canned answer.
type fakeQueryService struct {
	answer *domain.Answer
	req    driving.AskRequest
}

func (f *fakeQueryService) Ask(_ context.Context, req driving.AskRequest) (*domain.Answer, error) {
	f.req = req
	return f.answer, nil
}

// fakeConversationService returns canned conversations and messages.
type fakeConversationService struct {
	convs []domain.Conversation
	msgs  []domain.Message
}

func (f *fakeConversationService) List(context.Context) ([]domain.Conversation, error) {
	return f.convs, nil
}

func (f *fakeConversationService) History(context.Context, string) ([]domain.Message, error) {
	return f.msgs, nil
}

func execute(t *testing.T, args ...string) string {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "1.2.3"
	defer func() { version = originalVersion }()

	out := execute(t, "version")
	assert.Contains(t, out, "aska version 1.2.3")
}

func TestAskCmd_PrintsAnswerWithSources(t *testing.T) {
	original := queryService
	fake := &fakeQueryService{answer: &domain.Answer{
		ConversationID: "conv-1",
		Text:           "Go is a compiled language. [1]",
		Citations: []domain.Citation{
			{ChunkID: "doc:abc", DocumentName: "go-notes.md", Score: 0.91, Snippet: "Go compiles to native code."},
		},
	}}
	queryService = fake
	defer func() {
		queryService = original
		askConversation = ""
		askJSON = false
	}()

	out := execute(t, "ask", "what is go", "--conversation", "conv-1")

	assert.Equal(t, "conv-1", fake.req.ConversationID)
	assert.Equal(t, "what is go", fake.req.Question)
	assert.Contains(t, out, "Go is a compiled language.")
	assert.Contains(t, out, "go-notes.md")
	assert.Contains(t, out, "Conversation: conv-1")
	assert.NotContains(t, out, "Degraded")
}

func TestAskCmd_FlagsUncitedAndDegraded(t *testing.T) {
	original := queryService
	queryService = &fakeQueryService{answer: &domain.Answer{
		ConversationID: "conv-2",
		Text:           "I do not know.",
		Uncited:        true,
		DegradedStages: []domain.Stage{domain.StageReranked},
	}}
	defer func() {
		queryService = original
		askConversation = ""
		askJSON = false
	}()

	out := execute(t, "ask", "unknown topic")

	assert.Contains(t, out, "no citations")
	assert.Contains(t, out, "Degraded stages:")
}

func TestAskCmd_JSONOutput(t *testing.T) {
	original := queryService
	queryService = &fakeQueryService{answer: &domain.Answer{
		ConversationID: "conv-3",
		Text:           "answer",
	}}
	defer func() {
		queryService = original
		askConversation = ""
		askJSON = false
	}()

	out := execute(t, "ask", "q", "--json")
	assert.Contains(t, out, `"conversation_id": "conv-3"`)
	assert.Contains(t, out, `"text": "answer"`)
}

func TestConversationsListCmd_Empty(t *testing.T) {
	original := conversationService
	conversationService = &fakeConversationService{}
	defer func() {
		conversationService = original
		conversationsJSON = false
	}()

	out := execute(t, "conversations", "list")
	assert.Contains(t, out, "No conversations yet.")
}

func TestConversationsHistoryCmd(t *testing.T) {
	original := conversationService
	conversationService = &fakeConversationService{msgs: []domain.Message{
		{Seq: 0, Role: domain.RoleUser, Content: "hello"},
		{Seq: 1, Role: domain.RoleAssistant, Content: "hi", Citations: []domain.Citation{
			{DocumentName: "notes.md", Score: 0.8},
		}},
	}}
	defer func() {
		conversationService = original
		conversationsJSON = false
	}()

	out := execute(t, "conversations", "history", "conv-1")
	assert.Contains(t, out, "[0] user: hello")
	assert.Contains(t, out, "[1] assistant: hi")
	assert.Contains(t, out, "notes.md")
}
