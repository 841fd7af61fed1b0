package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStage_Order tests the forward sequence of pipeline stages
func TestStage_Order(t *testing.T) {
	assert.Equal(t, StageMemoryAssembled, StageReceived.Next())
	assert.Equal(t, StageRetrieved, StageMemoryAssembled.Next())
	assert.Equal(t, StageReranked, StageRetrieved.Next())
	assert.Equal(t, StageGenerated, StageReranked.Next())
	assert.Equal(t, StageCited, StageGenerated.Next())
	assert.Equal(t, StagePersisted, StageCited.Next())
}

// TestStage_Terminal tests terminal state detection
func TestStage_Terminal(t *testing.T) {
	assert.True(t, StagePersisted.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageReceived.Terminal())
	assert.False(t, StageCited.Terminal())
}

// TestStage_CanTransition tests legal transitions
func TestStage_CanTransition(t *testing.T) {
	// One step forward is legal
	assert.True(t, StageReceived.CanTransition(StageMemoryAssembled))
	assert.True(t, StageCited.CanTransition(StagePersisted))

	// Skipping a stage is not
	assert.False(t, StageReceived.CanTransition(StageRetrieved))
	assert.False(t, StageRetrieved.CanTransition(StageGenerated))

	// Failed is reachable from any non-terminal state
	assert.True(t, StageReceived.CanTransition(StageFailed))
	assert.True(t, StageGenerated.CanTransition(StageFailed))

	// Terminal states have no outgoing transitions
	assert.False(t, StagePersisted.CanTransition(StageFailed))
	assert.False(t, StageFailed.CanTransition(StageReceived))
}

// TestStage_IsValid tests stage recognition
func TestStage_IsValid(t *testing.T) {
	assert.True(t, StageReceived.IsValid())
	assert.True(t, StageFailed.IsValid())
	assert.False(t, Stage("unknown").IsValid())
}
