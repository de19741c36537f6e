package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordDetector(t *testing.T) {
	detector := KeywordDetector{}

	refersBack := []string{
		"What did I order yesterday?",
		"You said the totals were wrong",
		"As I mentioned earlier",
		"Previously we discussed pricing",
		"Can you explain that?",
		"What about this?",
		"Just a follow up on my last question",
	}
	for _, q := range refersBack {
		assert.True(t, detector.RefersBack(q), "expected back-reference: %q", q)
	}

	standalone := []string{
		"What is the total revenue for March?",
		"List all participants",
		"How many rows does the sheet have?",
		"The thistle is the national flower of Scotland",
	}
	for _, q := range standalone {
		assert.False(t, detector.RefersBack(q), "expected standalone: %q", q)
	}
}
