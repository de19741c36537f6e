package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/document"
	"github.com/poiesic/chatforge/storage"
	"github.com/poiesic/chatforge/vector"
)

// Document is one uploadable training item.
type Document struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
}

// Pipeline orchestrates document ingestion: processing, embedding, and
// vector indexing, with per-document status tracking.
type Pipeline struct {
	processor *document.Processor
	embedder  ai.Embedder
	gateway   *vector.Gateway
	statuses  storage.DocumentStatusRepository
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent document processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	processor *document.Processor,
	embedder ai.Embedder,
	gateway *vector.Gateway,
	statuses storage.DocumentStatusRepository,
	opts ...Option,
) (*Pipeline, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if statuses == nil {
		return nil, ErrStatusRepoRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		processor: processor,
		embedder:  embedder,
		gateway:   gateway,
		statuses:  statuses,
		pool:      pool,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release shuts down the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Ingest processes one document into the namespace synchronously.
// The document's status moves pending -> processing -> completed, or to
// failed with the error recorded.
func (p *Pipeline) Ingest(ctx context.Context, namespace string, doc Document) error {
	if doc.ID == "" {
		return ErrEmptyDocumentID
	}

	p.setStatus(ctx, doc.ID, core.DocumentStatePending, 0, "")
	p.setStatus(ctx, doc.ID, core.DocumentStateProcessing, 0, "")

	count, err := p.ingest(ctx, namespace, doc)
	if err != nil {
		p.setStatus(ctx, doc.ID, core.DocumentStateFailed, 0, err.Error())
		p.logger.Error("document ingestion failed", "document", doc.ID, "err", err)
		return fmt.Errorf("ingest document %s: %w", doc.ID, err)
	}

	p.setStatus(ctx, doc.ID, core.DocumentStateCompleted, count, "")
	p.logger.Info("document ingested", "document", doc.ID, "chunks", count)
	return nil
}

// IngestBatch ingests documents concurrently through the worker pool and
// waits for all of them. A failing document records its failure in its own
// status and does not stop its siblings; the first error is returned once
// the batch completes.
func (p *Pipeline) IngestBatch(ctx context.Context, namespace string, docs []Document) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.Ingest(ctx, namespace, doc); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	return firstErr
}

// Delete removes a document's vectors and its status entry.
// Returns the number of vectors removed.
func (p *Pipeline) Delete(ctx context.Context, namespace, documentID string) (int, error) {
	removed, err := p.gateway.DeleteDocumentVectors(ctx, namespace, documentID)
	if err != nil {
		return 0, err
	}
	if err := p.statuses.DeleteDocumentStatus(ctx, documentID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return removed, err
	}
	return removed, nil
}

// Status returns a document's ingestion status.
func (p *Pipeline) Status(ctx context.Context, documentID string) (*core.DocumentStatus, error) {
	return p.statuses.GetDocumentStatus(ctx, documentID)
}

func (p *Pipeline) ingest(ctx context.Context, namespace string, doc Document) (int, error) {
	// Drop any vectors from a previous ingestion of this document so
	// re-uploads never leave stale chunks behind.
	if removed, err := p.gateway.DeleteDocumentVectors(ctx, namespace, doc.ID); err != nil {
		return 0, fmt.Errorf("clear previous vectors: %w", err)
	} else if removed > 0 {
		p.logger.Debug("removed stale vectors before re-ingest", "document", doc.ID, "removed", removed)
	}

	chunks, err := p.processor.Process(doc.Data, doc.MimeType, doc.Name)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	records := make([]vector.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vector.Record{
			ID:        fmt.Sprintf("%s#%d", doc.ID, i),
			Embedding: embeddings[i],
			Payload: map[string]any{
				"document_id": doc.ID,
				"source_name": chunk.Metadata.SourceName,
				"kind":        string(chunk.Kind),
				"row_range":   chunk.Metadata.RowRange,
				"text":        chunk.Content,
			},
		}
	}

	if err := p.gateway.Upsert(ctx, namespace, records); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(records), nil
}

// setStatus records a status transition. Status writes are best effort: a
// failing status store must not fail the ingestion itself.
func (p *Pipeline) setStatus(ctx context.Context, documentID string, state core.DocumentState, chunks int, errMsg string) {
	status := &core.DocumentStatus{
		DocumentId: documentID,
		State:      state,
		ChunkCount: chunks,
		Error:      errMsg,
	}
	if err := p.statuses.SetDocumentStatus(ctx, status); err != nil {
		p.logger.Warn("failed to record document status", "document", documentID, "state", state, "err", err)
	}
}
