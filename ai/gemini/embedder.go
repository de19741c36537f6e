package gemini

import (
	"context"

	"github.com/google/generative-ai-go/genai"

	"github.com/poiesic/chatforge/ai"
)

// Embedder generates embeddings through the Gemini API.
// Embeddings use the retrieval-document task type, which is what the vectors
// are indexed for.
type Embedder struct {
	client *genai.Client
	model  string
}

var _ ai.Embedder = (*Embedder)(nil)

// EmbedText generates an embedding for one text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, mapError(err)
	}
	if res.Embedding == nil {
		return nil, ai.ErrEmptyResponse
	}
	return res.Embedding.Values, nil
}

// EmbedTexts generates embeddings for a batch of texts in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, mapError(err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, ai.ErrEmptyResponse
	}

	out := make([][]float32, len(res.Embeddings))
	for i, embedding := range res.Embeddings {
		out[i] = embedding.Values
	}
	return out, nil
}
