package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
)

// Generator produces chat completions through the Gemini API.
type Generator struct {
	client *genai.Client
}

var _ ai.Generator = (*Generator)(nil)

// Generate runs a multi-turn completion. The conversation history is replayed
// as a chat session; the final user message is the prompt.
func (g *Generator) Generate(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
	if len(req.Messages) == 0 {
		return nil, ai.ErrEmptyRequest
	}

	model := g.client.GenerativeModel(req.Model)
	applyParams(model, req.Params)
	model.SafetySettings = safetySettings(req.Params.SafetyLevel)

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}

	history, last := splitHistory(req.Messages)

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, mapError(err)
	}

	return buildResult(resp)
}

func applyParams(model *genai.GenerativeModel, params ai.GenerationParams) {
	if params.Temperature > 0 {
		model.SetTemperature(params.Temperature)
	}
	if params.TopP > 0 {
		model.SetTopP(params.TopP)
	}
	if params.TopK > 0 {
		model.SetTopK(int32(params.TopK))
	}
	if params.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(params.MaxOutputTokens))
	}
}

// splitHistory converts all but the last message into Gemini chat history.
// Gemini names the assistant role "model".
func splitHistory(messages []ai.ChatMessage) ([]*genai.Content, string) {
	last := messages[len(messages)-1].Content

	var history []*genai.Content
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == core.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return history, last
}

func buildResult(resp *genai.GenerateContentResponse) (*ai.GenerationResult, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, &ai.SafetyBlockError{
			Provider: ProviderName,
			Reason:   resp.PromptFeedback.BlockReason.String(),
		}
	}
	if len(resp.Candidates) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &ai.SafetyBlockError{Provider: ProviderName, Reason: "response blocked by safety filter"}
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	result := &ai.GenerationResult{
		Text:         sb.String(),
		FinishReason: candidate.FinishReason.String(),
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = result.InputTokens + result.OutputTokens
	}
	return result, nil
}
