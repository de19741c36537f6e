package storage

import (
	"context"
	"time"

	"github.com/poiesic/chatforge/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ConversationRepository provides operations for managing conversation threads.
type ConversationRepository interface {
	Repository

	// AddConversations adds one or more conversations to storage.
	// Generates new IDs from sequence and sets InsertedAt/UpdatedAt.
	// Returns the conversations with generated IDs populated.
	AddConversations(ctx context.Context, conversations ...*core.Conversation) ([]*core.Conversation, error)

	// UpdateConversations updates existing conversations.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any conversation doesn't exist.
	UpdateConversations(ctx context.Context, conversations ...*core.Conversation) ([]*core.Conversation, error)

	// GetConversation retrieves a single conversation by ID.
	// Returns ErrNotFound if the conversation doesn't exist.
	GetConversation(ctx context.Context, id core.ID) (*core.Conversation, error)

	// FindConversationBySession finds the conversation for a
	// (chatbot, session) pair. Returns ErrNotFound if none exists.
	FindConversationBySession(ctx context.Context, chatbotID, sessionID string) (*core.Conversation, error)

	// DeleteConversations removes conversations by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any conversation doesn't exist.
	DeleteConversations(ctx context.Context, ids ...core.ID) error
}

// MessageRepository provides operations for managing conversation messages.
type MessageRepository interface {
	Repository

	// AddMessages adds one or more messages to storage.
	// Generates new IDs from sequence and indexes each message under its
	// conversation, ordered by CreatedAt.
	// Returns the messages with generated IDs populated.
	AddMessages(ctx context.Context, messages ...*core.Message) ([]*core.Message, error)

	// GetMessage retrieves a single message by ID.
	// Returns ErrNotFound if the message doesn't exist.
	GetMessage(ctx context.Context, id core.ID) (*core.Message, error)

	// GetConversationMessages retrieves up to limit messages for a
	// conversation, most recent first. limit <= 0 returns all messages.
	GetConversationMessages(ctx context.Context, conversationID core.ID, limit int) ([]*core.Message, error)

	// CountConversationMessages returns the authoritative number of stored
	// messages for a conversation.
	CountConversationMessages(ctx context.Context, conversationID core.ID) (int, error)

	// DeleteConversationMessages removes all messages of a conversation.
	DeleteConversationMessages(ctx context.Context, conversationID core.ID) error
}

// UsageRepository provides operations for persisting AI usage records.
type UsageRepository interface {
	Repository

	// AddUsageRecords persists one or more usage records.
	// Sets CreatedAt if not already set.
	AddUsageRecords(ctx context.Context, records ...*core.UsageRecord) error

	// GetUsageByDateRange retrieves usage records within a time range.
	// Returns records where start <= CreatedAt < end, ordered by time.
	GetUsageByDateRange(ctx context.Context, start, end time.Time) ([]*core.UsageRecord, error)
}

// DocumentStatusRepository tracks per-document ingestion state.
type DocumentStatusRepository interface {
	Repository

	// SetDocumentStatus writes or replaces the status of a document.
	SetDocumentStatus(ctx context.Context, status *core.DocumentStatus) error

	// GetDocumentStatus retrieves the status of a document.
	// Returns ErrNotFound if the document has never been seen.
	GetDocumentStatus(ctx context.Context, documentID string) (*core.DocumentStatus, error)

	// ListDocumentStatuses returns the status of every known document.
	ListDocumentStatuses(ctx context.Context) ([]*core.DocumentStatus, error)

	// DeleteDocumentStatus removes a document's status entry.
	// Returns ErrNotFound if no entry exists.
	DeleteDocumentStatus(ctx context.Context, documentID string) error
}
