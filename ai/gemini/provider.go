// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package gemini implements the ai provider interfaces over the Google
// Generative AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/poiesic/chatforge/ai"
)

const (
	// ProviderName is the identifier this provider registers under.
	ProviderName = "gemini"

	defaultEmbeddingModel = "text-embedding-004"
)

// Provider bundles the Gemini generator and embedder over one shared client.
type Provider struct {
	client         *genai.Client
	embeddingModel string
	generator      *Generator
	embedder       *Embedder
}

var _ ai.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithEmbeddingModel overrides the embedding model.
// Default is text-embedding-004.
func WithEmbeddingModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.embeddingModel = model
		}
	}
}

// NewProvider creates a Gemini provider authenticated with the given API key.
func NewProvider(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	p := &Provider{
		client:         client,
		embeddingModel: defaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.generator = &Generator{client: client}
	p.embedder = &Embedder{client: client, model: p.embeddingModel}
	return p, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return ProviderName }

// Generator returns the chat completion service.
func (p *Provider) Generator() ai.Generator { return p.generator }

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder { return p.embedder }

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// mapError translates SDK failures into the ai error taxonomy so the gateway
// can make its transient/permanent retry decision.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return &ai.AuthError{Provider: ProviderName, Err: err}
		case 429:
			return &ai.QuotaExceededError{Provider: ProviderName, Err: err}
		case 500, 502, 503, 504:
			return &ai.ServiceUnavailableError{Provider: ProviderName, Err: err}
		}
	}
	return &ai.ServiceUnavailableError{Provider: ProviderName, Err: err}
}
