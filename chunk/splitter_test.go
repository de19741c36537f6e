package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := NewSplitter()
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxTokens, s.maxTokens)
		assert.Equal(t, DefaultOverlap, s.overlap)
	})

	t.Run("rejects overlap equal to maxTokens", func(t *testing.T) {
		_, err := NewSplitter(WithMaxTokens(100), WithOverlap(100))
		assert.ErrorIs(t, err, ErrOverlapTooLarge)
	})

	t.Run("rejects overlap greater than maxTokens", func(t *testing.T) {
		_, err := NewSplitter(WithMaxTokens(50), WithOverlap(80))
		assert.ErrorIs(t, err, ErrOverlapTooLarge)
	})

	t.Run("rejects non-positive maxTokens", func(t *testing.T) {
		_, err := NewSplitter(WithMaxTokens(0))
		assert.ErrorIs(t, err, ErrInvalidMaxTokens)
	})
}

func TestSplit(t *testing.T) {
	s, err := NewSplitter(WithMaxTokens(100), WithOverlap(10))
	require.NoError(t, err)

	if _, tokErr := s.tokenizer(); tokErr != nil {
		t.Skipf("tokenizer unavailable: %v", tokErr)
	}

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, s.Split(""))
	})

	t.Run("short text returned whole", func(t *testing.T) {
		text := "The quick brown fox jumps over the lazy dog."
		segments := s.Split(text)
		require.Len(t, segments, 1)
		assert.Equal(t, text, segments[0])
	})

	t.Run("long text is windowed within the token budget", func(t *testing.T) {
		// ~1200 words, far beyond a 100-token window.
		text := strings.Repeat("the museum catalog describes ancient pottery fragments ", 200)
		segments := s.Split(text)
		require.Greater(t, len(segments), 1)

		for _, segment := range segments {
			assert.LessOrEqual(t, s.EstimateTokens(segment), 100)
			assert.Greater(t, len(segment), 50)
		}
	})

	t.Run("consecutive windows overlap", func(t *testing.T) {
		text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta ", 100)
		segments := s.Split(text)
		require.Greater(t, len(segments), 1)

		// With a 10-token overlap, the tail of one window reappears at the
		// head of the next.
		tail := segments[0][len(segments[0])-20:]
		assert.Contains(t, segments[1], strings.TrimSpace(tail))
	})
}
