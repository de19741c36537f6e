package openai

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
)

// Generator implements ai.Generator over an OpenAI-compatible chat API.
type Generator struct {
	client *openai.LLM
	logger *slog.Logger
}

var _ ai.Generator = (*Generator)(nil)

// Generate runs a chat completion.
func (g *Generator) Generate(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
	if len(req.Messages) == 0 {
		return nil, ai.ErrEmptyRequest
	}

	content := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, m := range req.Messages {
		messageType := llms.ChatMessageTypeHuman
		if m.Role == core.RoleAssistant {
			messageType = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(messageType, m.Content))
	}

	opts := []llms.CallOption{llms.WithModel(req.Model)}
	if req.Params.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(req.Params.Temperature)))
	}
	if req.Params.TopP > 0 {
		opts = append(opts, llms.WithTopP(float64(req.Params.TopP)))
	}
	if req.Params.MaxOutputTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.Params.MaxOutputTokens))
	}

	resp, err := g.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		g.logger.Error("completion failed", "model", req.Model, "err", err)
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	result := &ai.GenerationResult{
		Text:         choice.Content,
		FinishReason: choice.StopReason,
	}
	if n, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
		result.InputTokens = n
	}
	if n, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
		result.OutputTokens = n
	}
	if n, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		result.TotalTokens = n
	}
	return result, nil
}
