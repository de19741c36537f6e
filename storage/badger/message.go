package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
type MessageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) (*MessageRepository, error) {
	idSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}

	return &MessageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *MessageRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *MessageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddMessages adds one or more messages to storage.
func (r *MessageRepository) AddMessages(ctx context.Context, messages ...*core.Message) ([]*core.Message, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, message := range messages {
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
			message.Id = core.ID(nextID)

			if message.CreatedAt.IsZero() {
				message.CreatedAt = time.Now().UTC()
			}

			value, err := storage.MarshalMessage(message)
			if err != nil {
				return err
			}
			if err := tx.Set(makeMessageKey(message.Id), value); err != nil {
				return err
			}

			// Per-conversation time index
			convKey := makeMessageConvKey(message.ConversationId, message.CreatedAt, message.Id)
			if err := tx.Set(convKey, storage.MarshalID(message.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return messages, err
}

// GetMessage retrieves a single message by ID.
func (r *MessageRepository) GetMessage(ctx context.Context, id core.ID) (*core.Message, error) {
	var result *core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readMessage(tx, makeMessageKey(id))
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

// GetConversationMessages retrieves up to limit messages, most recent first.
func (r *MessageRepository) GetConversationMessages(ctx context.Context, conversationID core.ID, limit int) ([]*core.Message, error) {
	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := makePartialMessageConvKey(conversationID)

		// Seek to the last possible key of this conversation; the
		// reverse iterator then walks newest to oldest.
		maxTime := time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC)
		startKey := makeMessageConvKey(conversationID, maxTime, core.ID(^uint64(0)))

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var messageID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				messageID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			message, err := readMessage(tx, makeMessageKey(messageID))
			if err != nil {
				return err
			}
			if message != nil {
				results = append(results, message)
				if limit > 0 && len(results) >= limit {
					break
				}
			}
		}
		return nil
	}, false)

	return results, err
}

// CountConversationMessages counts the stored messages of a conversation.
func (r *MessageRepository) CountConversationMessages(ctx context.Context, conversationID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialMessageConvKey(conversationID)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// DeleteConversationMessages removes all messages of a conversation.
func (r *MessageRepository) DeleteConversationMessages(ctx context.Context, conversationID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageConvKey(conversationID)

		iter := tx.NewIterator(opts)

		// Collect first; deleting while iterating invalidates the iterator.
		var indexKeys [][]byte
		var messageIDs []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))

			var messageID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				messageID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			messageIDs = append(messageIDs, messageID)
		}
		iter.Close()

		for _, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		for _, id := range messageIDs {
			if err := tx.Delete(makeMessageKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readMessage reads a message from the transaction.
func readMessage(tx *badger.Txn, key []byte) (*core.Message, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var message *core.Message
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		message, unmarshalErr = storage.UnmarshalMessage(val)
		return unmarshalErr
	})
	return message, err
}
