package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
)

func TestSplitHistory(t *testing.T) {
	messages := []ai.ChatMessage{
		{Role: core.RoleUser, Content: "first question"},
		{Role: core.RoleAssistant, Content: "first answer"},
		{Role: core.RoleUser, Content: "second question"},
	}

	history, last := splitHistory(messages)

	assert.Equal(t, "second question", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("first answer"), history[1].Parts[0])
}

func TestSafetySettings(t *testing.T) {
	low := safetySettings(ai.SafetyLow)
	require.Len(t, low, 4)
	for _, s := range low {
		assert.Equal(t, genai.HarmBlockOnlyHigh, s.Threshold)
	}

	medium := safetySettings(ai.SafetyMedium)
	assert.Equal(t, genai.HarmBlockMediumAndAbove, medium[0].Threshold)

	// Unset levels behave like medium.
	unset := safetySettings("")
	assert.Equal(t, genai.HarmBlockMediumAndAbove, unset[0].Threshold)

	high := safetySettings(ai.SafetyHigh)
	assert.Equal(t, genai.HarmBlockLowAndAbove, high[0].Threshold)
}
