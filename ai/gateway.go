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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/chatforge/core"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 5 * time.Second
)

// Gateway routes generation requests to the right provider, enforcing
// per-user rate limits, retrying transient failures, and recording usage.
//
// A request moves through fixed stages: rate check, parameter resolution,
// generation with retry, usage recording. Rate-limited requests are rejected
// before any provider call and produce no usage record.
type Gateway struct {
	providers map[string]Provider
	registry  *Registry
	limiter   RateLimiter
	usage     UsageSink
	logger    *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway) error

// WithRegistry replaces the default model registry.
func WithRegistry(registry *Registry) GatewayOption {
	return func(g *Gateway) error {
		if registry == nil {
			return fmt.Errorf("registry cannot be nil")
		}
		g.registry = registry
		return nil
	}
}

// WithRateLimiter replaces the default in-memory sliding-window limiter,
// for example with one backed by a shared store.
func WithRateLimiter(limiter RateLimiter) GatewayOption {
	return func(g *Gateway) error {
		if limiter == nil {
			return fmt.Errorf("rate limiter cannot be nil")
		}
		g.limiter = limiter
		return nil
	}
}

// WithUsageSink attaches a sink for usage records.
// Without one, usage is not recorded.
func WithUsageSink(sink UsageSink) GatewayOption {
	return func(g *Gateway) error {
		g.usage = sink
		return nil
	}
}

// WithMaxAttempts overrides the retry attempt count.
// Default is 3.
func WithMaxAttempts(n int) GatewayOption {
	return func(g *Gateway) error {
		if n <= 0 {
			return ErrInvalidMaxAttempts
		}
		g.maxAttempts = n
		return nil
	}
}

// WithRetryDelays overrides the backoff delays.
// Defaults are 1s base, 5s cap.
func WithRetryDelays(base, max time.Duration) GatewayOption {
	return func(g *Gateway) error {
		if base <= 0 || max < base {
			return fmt.Errorf("invalid retry delays: base=%s max=%s", base, max)
		}
		g.baseDelay = base
		g.maxDelay = max
		return nil
	}
}

// WithGatewayLogger sets a custom logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGateway creates a gateway over one or more providers.
func NewGateway(providers []Provider, opts ...GatewayOption) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, ErrProviderRequired
	}

	g := &Gateway{
		providers:   map[string]Provider{},
		registry:    DefaultRegistry(),
		limiter:     NewSlidingWindowLimiter(),
		logger:      slog.Default().With("component", "ai-gateway"),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Generate runs a completion request through the full pipeline.
func (g *Gateway) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	if req.Model == "" {
		return nil, ErrEmptyModel
	}
	if len(req.Messages) == 0 {
		return nil, ErrEmptyRequest
	}

	cfg, registered := g.registry.Lookup(req.Model)
	if !registered {
		g.logger.Warn("model not registered, using fallback limits", "model", req.Model)
	}

	provider, ok := g.providers[cfg.Provider]
	if !ok {
		return nil, &UnknownProviderError{Model: req.Model, Provider: cfg.Provider}
	}

	if err := g.limiter.Check(req.UserId, req.Model, cfg.Limits.RPM); err != nil {
		g.logger.Info("request rate limited", "user", req.UserId, "model", req.Model)
		return nil, err
	}

	resolved := *req
	resolved.Params = resolveParams(req.Params, cfg)

	started := time.Now()
	var result *GenerationResult
	err := retryWithBackoff(ctx, func() error {
		var genErr error
		result, genErr = provider.Generator().Generate(ctx, &resolved)
		return genErr
	}, g.maxAttempts, g.baseDelay, g.maxDelay)
	elapsed := time.Since(started)

	if err != nil {
		g.recordUsage(req, provider.Name(), nil, elapsed, err)
		return nil, err
	}

	result.Model = req.Model
	result.Provider = provider.Name()
	result.ResponseTime = elapsed
	if result.InputTokens == 0 {
		result.InputTokens = estimateRequestTokens(&resolved)
	}
	if result.OutputTokens == 0 {
		result.OutputTokens = EstimateTokens(result.Text)
	}
	if result.TotalTokens == 0 {
		result.TotalTokens = result.InputTokens + result.OutputTokens
	}

	g.recordUsage(req, provider.Name(), result, elapsed, nil)
	return result, nil
}

// Embedder returns the embedding service of a registered provider.
func (g *Gateway) Embedder(providerName string) (Embedder, error) {
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, &UnknownProviderError{Provider: providerName}
	}
	return provider.Embedder(), nil
}

// Close shuts down the usage sink and all providers.
func (g *Gateway) Close() error {
	var firstErr error
	if g.usage != nil {
		if err := g.usage.Close(); err != nil {
			firstErr = err
		}
	}
	for _, p := range g.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (g *Gateway) recordUsage(req *GenerationRequest, provider string, result *GenerationResult, elapsed time.Duration, genErr error) {
	if g.usage == nil {
		return
	}

	record := UsageEvent{
		UserId:         req.UserId,
		ChatbotId:      req.ChatbotId,
		Model:          req.Model,
		Provider:       provider,
		ResponseTimeMs: elapsed.Milliseconds(),
		Success:        genErr == nil,
		CreatedAt:      time.Now().UTC(),
	}
	if result != nil {
		record.InputTokens = result.InputTokens
		record.OutputTokens = result.OutputTokens
		record.TotalTokens = result.TotalTokens
	}
	if genErr != nil {
		record.ErrorMessage = genErr.Error()
	}

	g.usage.Record(record)
}

// resolveParams fills zero-valued request parameters from the model defaults
// and clamps the output budget to the model's hard limit.
func resolveParams(params GenerationParams, cfg core.ModelConfig) GenerationParams {
	if params.Temperature == 0 {
		params.Temperature = cfg.DefaultParams.Temperature
	}
	if params.TopP == 0 {
		params.TopP = cfg.DefaultParams.TopP
	}
	if params.TopK == 0 {
		params.TopK = cfg.DefaultParams.TopK
	}
	if params.MaxOutputTokens == 0 {
		params.MaxOutputTokens = cfg.DefaultParams.MaxOutputTokens
	}
	if cfg.Limits.MaxTokens > 0 && params.MaxOutputTokens > cfg.Limits.MaxTokens {
		params.MaxOutputTokens = cfg.Limits.MaxTokens
	}
	if params.SafetyLevel == "" {
		params.SafetyLevel = SafetyMedium
	}
	return params
}

func estimateRequestTokens(req *GenerationRequest) int {
	total := EstimateTokens(req.SystemPrompt)
	for _, m := range req.Messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
