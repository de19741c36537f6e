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


// Package openai implements the ai provider interfaces over OpenAI-compatible
// services via langchaingo. Pointing BaseURL at a local server (Ollama,
// llama.cpp, vLLM) works the same as the hosted API.
package openai

import (
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/chatforge/ai"
)

// ProviderName is the identifier this provider registers under.
const ProviderName = "openai"

// Config holds connection settings for an OpenAI-compatible service.
type Config struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1" or
	// "http://localhost:11434/v1" for a local server.
	BaseURL string

	// Token is the API key. Use "none" for local services without auth.
	Token string

	// EmbeddingModel is the model used for embeddings.
	EmbeddingModel string
}

// Provider implements ai.Provider using OpenAI-compatible services.
type Provider struct {
	generator *Generator
	embedder  *Embedder
	logger    *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// NewProvider creates a provider for an OpenAI-compatible service.
func NewProvider(config Config) (*Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Token == "" {
		config.Token = "none"
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-3-small"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	generator := &Generator{
		client: client,
		logger: slog.Default().With("component", "openai-generator"),
	}
	embedder, err := newEmbedder(client)
	if err != nil {
		return nil, err
	}

	return &Provider{
		generator: generator,
		embedder:  embedder,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return ProviderName }

// Generator returns the chat completion service.
func (p *Provider) Generator() ai.Generator { return p.generator }

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder { return p.embedder }

// Close releases resources held by the provider.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}

// mapError classifies langchaingo failures into the ai taxonomy. The client
// surfaces HTTP failures as flat errors, so classification is by status text.
func mapError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "Incorrect API key"):
		return &ai.AuthError{Provider: ProviderName, Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return &ai.QuotaExceededError{Provider: ProviderName, Err: err}
	default:
		return &ai.ServiceUnavailableError{Provider: ProviderName, Err: err}
	}
}
