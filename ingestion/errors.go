package ingestion

import "errors"

var (
	// ErrProcessorRequired is returned when no document processor is provided.
	ErrProcessorRequired = errors.New("document processor required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrGatewayRequired is returned when no vector gateway is provided.
	ErrGatewayRequired = errors.New("vector gateway required")

	// ErrStatusRepoRequired is returned when no status repository is provided.
	ErrStatusRepoRequired = errors.New("document status repository required")

	// ErrEmptyDocumentID is returned for a document without an identifier.
	ErrEmptyDocumentID = errors.New("document id required")

	// ErrNoChunks indicates processing produced nothing worth indexing.
	ErrNoChunks = errors.New("document produced no indexable chunks")
)
