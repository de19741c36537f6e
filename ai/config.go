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


package ai

import (
	"github.com/poiesic/chatforge/core"
)

// Registry maps model names to their configuration. Lookups for unknown
// models fall back to a conservative default so new models work before they
// are formally registered.
type Registry struct {
	models   map[string]core.ModelConfig
	fallback core.ModelConfig
}

// DefaultRegistry returns a registry seeded with the models chatforge ships
// support for.
func DefaultRegistry() *Registry {
	r := &Registry{
		models: map[string]core.ModelConfig{},
		fallback: core.ModelConfig{
			Provider:      "gemini",
			Capabilities:  core.ModelCapabilities{Chat: true},
			Limits:        core.ModelLimits{MaxTokens: 8192, MaxInputTokens: 30720, RPM: 15, RPD: 1500, TPM: 1000000},
			DefaultParams: core.GenerationDefaults{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
			ContextWindow: 32768,
		},
	}

	r.Register(core.ModelConfig{
		Name:          "gemini-2.0-flash",
		Provider:      "gemini",
		Capabilities:  core.ModelCapabilities{Chat: true, Vision: true, FunctionCalling: true, Streaming: true},
		Limits:        core.ModelLimits{MaxTokens: 8192, MaxInputTokens: 1048576, RPM: 15, RPD: 1500, TPM: 1000000},
		DefaultParams: core.GenerationDefaults{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		ContextWindow: 1048576,
	})
	r.Register(core.ModelConfig{
		Name:          "gemini-1.5-pro",
		Provider:      "gemini",
		Capabilities:  core.ModelCapabilities{Chat: true, Vision: true, FunctionCalling: true, Streaming: true},
		Limits:        core.ModelLimits{MaxTokens: 8192, MaxInputTokens: 2097152, RPM: 2, RPD: 50, TPM: 32000},
		DefaultParams: core.GenerationDefaults{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		ContextWindow: 2097152,
	})
	r.Register(core.ModelConfig{
		Name:          "text-embedding-004",
		Provider:      "gemini",
		Capabilities:  core.ModelCapabilities{Embeddings: true},
		Limits:        core.ModelLimits{MaxInputTokens: 2048, RPM: 1500},
		ContextWindow: 2048,
	})
	r.Register(core.ModelConfig{
		Name:          "gpt-4o-mini",
		Provider:      "openai",
		Capabilities:  core.ModelCapabilities{Chat: true, Vision: true, FunctionCalling: true, Streaming: true},
		Limits:        core.ModelLimits{MaxTokens: 16384, MaxInputTokens: 128000, RPM: 500, RPD: 10000, TPM: 200000},
		DefaultParams: core.GenerationDefaults{Temperature: 0.7, TopP: 1.0, MaxOutputTokens: 2048},
		ContextWindow: 128000,
	})

	return r
}

// Register adds or replaces a model configuration.
func (r *Registry) Register(cfg core.ModelConfig) {
	r.models[cfg.Name] = cfg
}

// Lookup returns the configuration for a model, or the fallback when the
// model is unknown. The second return reports whether the model was
// explicitly registered.
func (r *Registry) Lookup(model string) (core.ModelConfig, bool) {
	cfg, ok := r.models[model]
	if !ok {
		cfg = r.fallback
		cfg.Name = model
	}
	return cfg, ok
}
