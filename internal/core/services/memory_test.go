package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aska-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aska-cli/internal/core/domain"
)

// seedConversation appends alternating user/assistant messages whose
// content is n words each.
func seedConversation(t *testing.T, store *memory.ConversationStore, id string, contents ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := store.CreateConversation(ctx, id)
	require.NoError(t, err)

	role := domain.RoleUser
	for i, c := range contents {
		require.NoError(t, store.AppendTurn(ctx, id, domain.Message{
			ID: string(rune('a' + i)), Role: role, Content: c,
		}))
		if role == domain.RoleUser {
			role = domain.RoleAssistant
		} else {
			role = domain.RoleUser
		}
	}
}

func TestAssemble_UnknownConversationIsEmpty(t *testing.T) {
	m := NewMemoryAssembler(memory.NewConversationStore())

	msgs, err := m.Assemble(context.Background(), "missing", 100)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAssemble_BudgetAdmitsSuffix(t *testing.T) {
	store := memory.NewConversationStore()
	// 4, 4 and 2 tokens respectively.
	seedConversation(t, store, "c1",
		"one two three four",
		"five six seven eight",
		"nine ten",
	)

	m := NewMemoryAssembler(store)

	// Budget 6 fits the last two messages but not the first.
	msgs, err := m.Assemble(context.Background(), "c1", 6)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "five six seven eight", msgs[0].Content)
	assert.Equal(t, "nine ten", msgs[1].Content)
}

func TestAssemble_WholeMessagesOnly(t *testing.T) {
	store := memory.NewConversationStore()
	seedConversation(t, store, "c1", "one two three", "four five")

	m := NewMemoryAssembler(store)

	// Budget 4 fits the last message (2 tokens) but not the 3-token one;
	// the older message is excluded whole rather than truncated.
	msgs, err := m.Assemble(context.Background(), "c1", 4)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "four five", msgs[0].Content)
}

func TestAssemble_LargerBudgetNeverExcludes(t *testing.T) {
	store := memory.NewConversationStore()
	seedConversation(t, store, "c1", "a b", "c d", "e f", "g h")

	m := NewMemoryAssembler(store)
	ctx := context.Background()

	var prev []domain.Message
	for budget := 0; budget <= 10; budget += 2 {
		msgs, err := m.Assemble(ctx, "c1", budget)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(msgs), len(prev), "budget %d", budget)
		prev = msgs
	}
}

func TestAssemble_ZeroBudget(t *testing.T) {
	store := memory.NewConversationStore()
	seedConversation(t, store, "c1", "hello there")

	m := NewMemoryAssembler(store)
	msgs, err := m.Assemble(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAssemble_OrderIsInsertionOrder(t *testing.T) {
	store := memory.NewConversationStore()
	contents := make([]string, 6)
	for i := range contents {
		contents[i] = strings.Repeat("w ", i+1)
	}
	seedConversation(t, store, "c1", contents...)

	m := NewMemoryAssembler(store)
	msgs, err := m.Assemble(context.Background(), "c1", 1000)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].Seq, msgs[i-1].Seq)
	}
}
