package memory

import "errors"

var (
	// ErrConversationRepoRequired is returned when no conversation repository is provided.
	ErrConversationRepoRequired = errors.New("conversation repository required")

	// ErrMessageRepoRequired is returned when no message repository is provided.
	ErrMessageRepoRequired = errors.New("message repository required")

	// ErrManagerRequired is returned when no memory manager is provided.
	ErrManagerRequired = errors.New("memory manager required")
)
