package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/ai/mock"
	"github.com/poiesic/chatforge/core"
)

type captureSink struct {
	mu      sync.Mutex
	records []ai.UsageEvent
}

func (s *captureSink) Record(record ai.UsageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) all() []ai.UsageEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ai.UsageEvent(nil), s.records...)
}

func testRegistry(rpm int) *ai.Registry {
	r := ai.DefaultRegistry()
	r.Register(core.ModelConfig{
		Name:          "test-model",
		Provider:      "mock",
		Capabilities:  core.ModelCapabilities{Chat: true},
		Limits:        core.ModelLimits{MaxTokens: 1024, RPM: rpm},
		DefaultParams: core.GenerationDefaults{Temperature: 0.5, TopP: 0.9, TopK: 20, MaxOutputTokens: 256},
	})
	return r
}

func newTestGateway(t *testing.T, provider *mock.Provider, opts ...ai.GatewayOption) *ai.Gateway {
	g, err := ai.NewGateway([]ai.Provider{provider}, opts...)
	require.NoError(t, err)
	return g
}

func chatRequest(model string) *ai.GenerationRequest {
	return &ai.GenerationRequest{
		UserId:    "user-1",
		ChatbotId: "bot-1",
		Model:     model,
		Messages:  []ai.ChatMessage{{Role: core.RoleUser, Content: "hello there"}},
	}
}

func TestGenerateHappyPath(t *testing.T) {
	provider := mock.NewProvider("mock")
	sink := &captureSink{}
	g := newTestGateway(t, provider,
		ai.WithRegistry(testRegistry(10)),
		ai.WithUsageSink(sink),
	)

	result, err := g.Generate(context.Background(), chatRequest("test-model"))
	require.NoError(t, err)

	assert.Equal(t, "echo: hello there", result.Text)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, "mock", result.Provider)
	assert.Positive(t, result.TotalTokens)

	records := sink.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, "user-1", records[0].UserId)
	assert.Equal(t, result.TotalTokens, records[0].TotalTokens)
}

func TestGenerateRateLimited(t *testing.T) {
	provider := mock.NewProvider("mock")
	sink := &captureSink{}
	g := newTestGateway(t, provider,
		ai.WithRegistry(testRegistry(2)),
		ai.WithUsageSink(sink),
	)

	ctx := context.Background()
	_, err := g.Generate(ctx, chatRequest("test-model"))
	require.NoError(t, err)
	_, err = g.Generate(ctx, chatRequest("test-model"))
	require.NoError(t, err)

	_, err = g.Generate(ctx, chatRequest("test-model"))
	var rateLimit *ai.RateLimitError
	require.ErrorAs(t, err, &rateLimit)
	assert.Positive(t, rateLimit.ResetIn)

	// Denied before the provider was invoked: two calls, two usage records.
	assert.Equal(t, 2, provider.Gen.Calls)
	assert.Len(t, sink.all(), 2)
}

type denyAllLimiter struct {
	calls int
}

func (l *denyAllLimiter) Check(userID, model string, rpm int) error {
	l.calls++
	return &ai.RateLimitError{Model: model, Limit: 0, ResetIn: time.Second}
}

func TestGenerateUsesInjectedRateLimiter(t *testing.T) {
	provider := mock.NewProvider("mock")
	limiter := &denyAllLimiter{}
	g := newTestGateway(t, provider,
		ai.WithRegistry(testRegistry(100)),
		ai.WithRateLimiter(limiter),
	)

	_, err := g.Generate(context.Background(), chatRequest("test-model"))
	var rateLimit *ai.RateLimitError
	require.ErrorAs(t, err, &rateLimit)

	assert.Equal(t, 1, limiter.calls)
	assert.Zero(t, provider.Gen.Calls)
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	provider := mock.NewProvider("mock")
	failures := 2
	provider.Gen.GenerateFunc = func(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
		if provider.Gen.Calls <= failures {
			return nil, &ai.ServiceUnavailableError{Provider: "mock", Err: errors.New("overloaded")}
		}
		return &ai.GenerationResult{Text: "recovered"}, nil
	}

	g := newTestGateway(t, provider,
		ai.WithRegistry(testRegistry(10)),
		ai.WithRetryDelays(time.Millisecond, 5*time.Millisecond),
	)

	result, err := g.Generate(context.Background(), chatRequest("test-model"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Text)
	assert.Equal(t, 3, provider.Gen.Calls)
}

func TestGenerateDoesNotRetryPermanentFailures(t *testing.T) {
	provider := mock.NewProvider("mock")
	provider.Gen.GenerateFunc = func(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
		return nil, &ai.AuthError{Provider: "mock", Err: errors.New("invalid key")}
	}

	sink := &captureSink{}
	g := newTestGateway(t, provider,
		ai.WithRegistry(testRegistry(10)),
		ai.WithRetryDelays(time.Millisecond, 5*time.Millisecond),
		ai.WithUsageSink(sink),
	)

	_, err := g.Generate(context.Background(), chatRequest("test-model"))
	var auth *ai.AuthError
	require.ErrorAs(t, err, &auth)
	assert.Equal(t, 1, provider.Gen.Calls)

	records := sink.all()
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.NotEmpty(t, records[0].ErrorMessage)
}

func TestGenerateUnknownProvider(t *testing.T) {
	provider := mock.NewProvider("mock")
	g := newTestGateway(t, provider) // default registry has no "mock" models

	_, err := g.Generate(context.Background(), chatRequest("gemini-2.0-flash"))
	var unknown *ai.UnknownProviderError
	assert.ErrorAs(t, err, &unknown)
}

func TestGenerateValidatesRequest(t *testing.T) {
	g := newTestGateway(t, mock.NewProvider("mock"))

	_, err := g.Generate(context.Background(), &ai.GenerationRequest{Model: ""})
	assert.ErrorIs(t, err, ai.ErrEmptyModel)

	_, err = g.Generate(context.Background(), &ai.GenerationRequest{Model: "test-model"})
	assert.ErrorIs(t, err, ai.ErrEmptyRequest)
}

func TestGenerateAppliesModelDefaults(t *testing.T) {
	provider := mock.NewProvider("mock")
	var seen ai.GenerationParams
	provider.Gen.GenerateFunc = func(ctx context.Context, req *ai.GenerationRequest) (*ai.GenerationResult, error) {
		seen = req.Params
		return &ai.GenerationResult{Text: "ok"}, nil
	}

	g := newTestGateway(t, provider, ai.WithRegistry(testRegistry(10)))

	_, err := g.Generate(context.Background(), chatRequest("test-model"))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, seen.Temperature, 0.001)
	assert.InDelta(t, 0.9, seen.TopP, 0.001)
	assert.Equal(t, 20, seen.TopK)
	assert.Equal(t, 256, seen.MaxOutputTokens)
	assert.Equal(t, ai.SafetyMedium, seen.SafetyLevel)
}
