// Package mock provides configurable test doubles for the ai interfaces.
package mock

import (
	"context"

	"github.com/poiesic/chatforge/ai"
)

// Generator is a test double for ai.Generator.
// Set GenerateFunc to control behavior; the default echoes the last message.
type Generator struct {
	GenerateFunc func(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error)
	Calls        int
}

func (g *Generator) Generate(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
	g.Calls++
	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, req)
	}
	last := req.Messages[len(req.Messages)-1]
	return &ai.GenerationResult{
		Text:         "echo: " + last.Content,
		InputTokens:  ai.EstimateTokens(last.Content),
		OutputTokens: ai.EstimateTokens(last.Content),
		FinishReason: "stop",
	}, nil
}

// Embedder is a test double for ai.Embedder.
// The default returns a fixed-dimension vector derived from text length.
type Embedder struct {
	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
	Dimension      int
}

func (e *Embedder) dimension() int {
	if e.Dimension > 0 {
		return e.Dimension
	}
	return 4
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if e.EmbedTextFunc != nil {
		return e.EmbedTextFunc(ctx, text)
	}
	vec := make([]float32, e.dimension())
	for i := range vec {
		vec[i] = float32(len(text)%(i+7)) / 7.0
	}
	return vec, nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.EmbedTextsFunc != nil {
		return e.EmbedTextsFunc(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Provider bundles mock services behind the ai.Provider interface.
type Provider struct {
	ProviderName string
	Gen          *Generator
	Emb          *Embedder
	CloseFunc    func() error
}

// NewProvider creates a mock provider with default doubles.
func NewProvider(name string) *Provider {
	return &Provider{
		ProviderName: name,
		Gen:          &Generator{},
		Emb:          &Embedder{},
	}
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) Generator() ai.Generator { return p.Gen }

func (p *Provider) Embedder() ai.Embedder { return p.Emb }

func (p *Provider) Close() error {
	if p.CloseFunc != nil {
		return p.CloseFunc()
	}
	return nil
}
