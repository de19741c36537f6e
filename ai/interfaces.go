package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces chat completions from a conversation transcript.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces a completion for the request.
	// Implementations translate their provider's failure modes into the
	// error taxonomy of this package so callers can distinguish transient
	// conditions from permanent ones.
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Generator and Embedder instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Name identifies the provider ("gemini", "openai", ...).
	Name() string

	// Generator returns the chat completion service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// RateLimiter admits or rejects requests against a per-(user, model) budget.
// The default sliding-window implementation is process-local; a distributed
// implementation can replace it through WithRateLimiter.
type RateLimiter interface {
	// Check consumes one request from the (userID, model) budget.
	// rpm <= 0 means unlimited. A denied request returns a *RateLimitError
	// carrying the time until capacity frees up.
	Check(userID, model string, rpm int) error
}

// UsageSink receives usage records emitted by the gateway. Implementations
// must not block the caller; persistence happens asynchronously.
type UsageSink interface {
	// Record queues a usage record for persistence.
	Record(record UsageEvent)

	// Close flushes any queued records and stops the sink.
	Close() error
}
