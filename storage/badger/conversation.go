package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	idSeq, err := backend.GetSequence(conversationIDSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ConversationRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ConversationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddConversations adds one or more conversations to storage.
func (r *ConversationRepository) AddConversations(ctx context.Context, conversations ...*core.Conversation) ([]*core.Conversation, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, conversation := range conversations {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			conversation.Id = core.ID(nextID)

			conversation.InsertedAt = time.Now().UTC()
			conversation.UpdatedAt = conversation.InsertedAt

			value, err := storage.MarshalConversation(conversation)
			if err != nil {
				return err
			}
			if err := tx.Set(makeConversationKey(conversation.Id), value); err != nil {
				return err
			}

			// Session index for (chatbot, session) lookup
			sessionKey := makeConversationSessionKey(conversation.ChatbotId, conversation.SessionId)
			if err := tx.Set(sessionKey, storage.MarshalID(conversation.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return conversations, err
}

// UpdateConversations updates existing conversations.
func (r *ConversationRepository) UpdateConversations(ctx context.Context, conversations ...*core.Conversation) ([]*core.Conversation, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, conversation := range conversations {
			key := makeConversationKey(conversation.Id)

			old, err := readConversation(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			conversation.UpdatedAt = time.Now().UTC()

			value, err := storage.MarshalConversation(conversation)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Re-point the session index if the pair changed
			if old.ChatbotId != conversation.ChatbotId || old.SessionId != conversation.SessionId {
				if err := tx.Delete(makeConversationSessionKey(old.ChatbotId, old.SessionId)); err != nil {
					return err
				}
				sessionKey := makeConversationSessionKey(conversation.ChatbotId, conversation.SessionId)
				if err := tx.Set(sessionKey, storage.MarshalID(conversation.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return conversations, err
}

// GetConversation retrieves a single conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id core.ID) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readConversation(tx, makeConversationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindConversationBySession finds the conversation for a (chatbot, session) pair.
func (r *ConversationRepository) FindConversationBySession(ctx context.Context, chatbotID, sessionID string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeConversationSessionKey(chatbotID, sessionID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var conversationID core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			conversationID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		result, err = readConversation(tx, makeConversationKey(conversationID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// DeleteConversations removes conversations by their IDs.
func (r *ConversationRepository) DeleteConversations(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeConversationKey(id)

			conversation, err := readConversation(tx, key)
			if err != nil {
				return err
			}
			if conversation == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeConversationSessionKey(conversation.ChatbotId, conversation.SessionId)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readConversation reads a conversation from the transaction.
func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var conversation *core.Conversation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		conversation, unmarshalErr = storage.UnmarshalConversation(val)
		return unmarshalErr
	})
	return conversation, err
}
