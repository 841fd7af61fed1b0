package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewDocumentID_Stable tests that identity is stable for identical input
func TestNewDocumentID_Stable(t *testing.T) {
	a := NewDocumentID("/docs/guide.md", "hello world")
	b := NewDocumentID("/docs/guide.md", "hello world")
	assert.Equal(t, a, b)
}

// TestNewDocumentID_PathSensitive tests that path changes the identity
func TestNewDocumentID_PathSensitive(t *testing.T) {
	a := NewDocumentID("/docs/guide.md", "hello world")
	b := NewDocumentID("/docs/other.md", "hello world")
	assert.NotEqual(t, a, b)
}

// TestNewDocumentID_ContentSensitive tests that content changes the identity
func TestNewDocumentID_ContentSensitive(t *testing.T) {
	a := NewDocumentID("/docs/guide.md", "hello world")
	b := NewDocumentID("/docs/guide.md", "hello there")
	assert.NotEqual(t, a, b)
}

// TestNewChunkID_Derivation tests chunk ID composition
func TestNewChunkID_Derivation(t *testing.T) {
	hash := HashContent("some chunk text")
	id := NewChunkID("doc-1", hash)

	assert.Contains(t, id, "doc-1:")
	assert.Equal(t, NewChunkID("doc-1", hash), id)
	assert.NotEqual(t, NewChunkID("doc-2", hash), id)
}

// TestScoresNonIncreasing tests retrieval ordering checks
func TestScoresNonIncreasing(t *testing.T) {
	ordered := []RetrievalResult{
		{Score: 0.9},
		{Score: 0.9},
		{Score: 0.4},
	}
	assert.True(t, ScoresNonIncreasing(ordered))

	unordered := []RetrievalResult{
		{Score: 0.4},
		{Score: 0.9},
	}
	assert.False(t, ScoresNonIncreasing(unordered))

	assert.True(t, ScoresNonIncreasing(nil))
}
