package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromString(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromString("doc-42_chunk_3")
		id2 := IDFromString("doc-42_chunk_3")
		assert.Equal(t, id1, id2)
	})

	t.Run("different inputs produce different ids", func(t *testing.T) {
		id1 := IDFromString("doc-42_chunk_3")
		id2 := IDFromString("doc-42_chunk_4")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty string is valid input", func(t *testing.T) {
		id := IDFromString("")
		assert.Equal(t, id, IDFromString(""))
	})
}

func TestChunkKindValues(t *testing.T) {
	assert.Equal(t, ChunkKind("overview"), ChunkKindOverview)
	assert.Equal(t, ChunkKind("data"), ChunkKindData)
	assert.Equal(t, ChunkKind("summary"), ChunkKindSummary)
}
