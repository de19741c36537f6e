package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromString generates a deterministic 64-bit ID from an external string
// identifier using BLAKE2b hashing. Identical input always produces the same ID.
//
// Hash collisions between distinct inputs are theoretically possible and are
// not detected or resolved here; vector payloads keep the original string id
// under "original_id" so collided records can still be told apart.
func IDFromString(s string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(s))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkKind classifies a chunk produced by document processing.
type ChunkKind string

const (
	// ChunkKindOverview describes the structure of a whole sheet.
	ChunkKindOverview ChunkKind = "overview"
	// ChunkKindData carries a group of rendered data rows.
	ChunkKindData ChunkKind = "data"
	// ChunkKindSummary carries per-column summary statistics.
	ChunkKindSummary ChunkKind = "summary"
)

// MinChunkLength is the minimum content length, in characters, for a chunk to
// be worth embedding. Shorter chunks are discarded during processing.
const MinChunkLength = 50

// ChunkMetadata describes where a chunk came from.
type ChunkMetadata struct {
	SourceName    string // Sheet or file the chunk was derived from
	RowRange      string // Row span for data chunks, e.g. "2-13"; empty otherwise
	TokenEstimate int    // Estimated token count of the content
}

// Chunk is a bounded unit of text derived from a source document,
// sized to fit a generation or embedding context budget.
type Chunk struct {
	Content  string
	Kind     ChunkKind
	Metadata ChunkMetadata
}

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser is a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a message authored by the AI assistant.
	RoleAssistant Role = "assistant"
	// RoleSystem is an instruction message; never persisted, only sent to providers.
	RoleSystem Role = "system"
)

// Conversation groups the messages of one chat session with one chatbot.
// MessageCount is recomputed from an authoritative count after every store,
// never incremented blindly, so a crash between message insert and counter
// update leaves the counter recoverable.
type Conversation struct {
	Id             ID
	ChatbotId      string
	SessionId      string
	MessageCount   int
	FirstMessageAt time.Time
	LastMessageAt  time.Time
	IsActive       bool
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// Message is a single conversation turn. Messages are immutable once stored
// and ordered by CreatedAt.
type Message struct {
	Id             ID
	ConversationId ID
	Role           Role
	Content        string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// UsageRecord captures the accounting for one generation request.
// Records are written in batches and never updated.
type UsageRecord struct {
	UserId         string
	ChatbotId      string
	Model          string
	Provider       string
	InputTokens    int
	OutputTokens   int
	TotalTokens    int
	ResponseTimeMs int64
	Success        bool
	ErrorMessage   string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// ModelCapabilities lists the features a model supports.
type ModelCapabilities struct {
	Chat            bool
	Embeddings      bool
	Vision          bool
	FunctionCalling bool
	Streaming       bool
}

// ModelLimits holds the hard limits for a model.
type ModelLimits struct {
	MaxTokens      int // Maximum output tokens per request
	MaxInputTokens int // Maximum input tokens per request
	RPM            int // Requests per minute
	RPD            int // Requests per day
	TPM            int // Tokens per minute
}

// GenerationDefaults holds the default sampling parameters for a model.
type GenerationDefaults struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// ModelConfig describes one generative or embedding model.
// Configs are immutable and loaded at process start.
type ModelConfig struct {
	Name          string
	Provider      string
	Capabilities  ModelCapabilities
	Limits        ModelLimits
	DefaultParams GenerationDefaults
	ContextWindow int
}

// DocumentState tracks a document through the ingestion pipeline.
type DocumentState string

const (
	DocumentStatePending    DocumentState = "pending"
	DocumentStateProcessing DocumentState = "processing"
	DocumentStateCompleted  DocumentState = "completed"
	DocumentStateFailed     DocumentState = "failed"
)

// DocumentStatus is the queryable ingestion status for one document.
// Parse and chunking errors are recorded here per document instead of
// aborting the ingestion batch.
type DocumentStatus struct {
	DocumentId string
	State      DocumentState
	ChunkCount int
	Error      string
	UpdatedAt  time.Time
}
