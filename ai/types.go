package ai

import (
	"math"
	"time"

	"github.com/poiesic/chatforge/core"
)

// charsPerToken is the estimation ratio used when a provider does not report
// token counts.
const charsPerToken = 3.5

// ChatMessage is a single turn handed to a Generator.
type ChatMessage struct {
	Role    core.Role
	Content string
}

// GenerationParams tunes a single completion.
// Zero values fall back to the model's configured defaults.
type GenerationParams struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
	SafetyLevel     SafetyLevel
}

// GenerationRequest is a complete completion request routed through the gateway.
type GenerationRequest struct {
	UserId       string
	ChatbotId    string
	Model        string
	SystemPrompt string
	Messages     []ChatMessage
	Params       GenerationParams
}

// GenerationResult is the outcome of a successful completion.
type GenerationResult struct {
	Text         string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	FinishReason string
	ResponseTime time.Duration
}

// UsageEvent mirrors core.UsageRecord for sink hand-off.
type UsageEvent = core.UsageRecord

// SafetyLevel selects how aggressively the provider filters harmful content.
type SafetyLevel string

const (
	SafetyLow    SafetyLevel = "low"
	SafetyMedium SafetyLevel = "medium"
	SafetyHigh   SafetyLevel = "high"
)

// EstimateTokens approximates the token count of a text when the provider
// does not report one. English text averages about 3.5 characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / charsPerToken))
}
