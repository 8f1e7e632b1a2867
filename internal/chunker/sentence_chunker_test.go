package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-rag/internal/domain"
)

func TestSentenceChunker_Overlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	doc := domain.Document{ID: "d1", Path: "/x/AAPL_Q1_2023.txt", Symbol: "AAPL", Content: "One. Two. Three. Four."}

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "One. Two.", chunks[0].Text)
	assert.Equal(t, "Two. Three.", chunks[1].Text)
	assert.Equal(t, "Three. Four.", chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "AAPL", ch.Symbol)
		assert.Equal(t, doc.Path, ch.Path)
	}
	assert.Equal(t, "d1:2", chunks[2].ChunkID)
}

func TestSentenceChunker_NoPunctuation(t *testing.T) {
	c := NewSentenceChunker(5, 1)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "  revenue grew  "})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "revenue grew", chunks[0].Text)
}

func TestSentenceChunker_Empty(t *testing.T) {
	c := NewSentenceChunker(5, 1)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "   "})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSentenceChunker_OverlapClamped(t *testing.T) {
	c := NewSentenceChunker(2, 5)
	chunks, err := c.Chunk(domain.Document{ID: "d", Content: "A. B. C."})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
