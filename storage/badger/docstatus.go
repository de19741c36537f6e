package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

// DocumentStatusRepository implements storage.DocumentStatusRepository for BadgerDB.
type DocumentStatusRepository struct {
	backend *Backend
}

var _ storage.DocumentStatusRepository = (*DocumentStatusRepository)(nil)

// NewDocumentStatusRepository creates a new DocumentStatusRepository.
func NewDocumentStatusRepository(backend *Backend) *DocumentStatusRepository {
	return &DocumentStatusRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources of its own.
func (r *DocumentStatusRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentStatusRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SetDocumentStatus writes or replaces the status of a document.
func (r *DocumentStatusRepository) SetDocumentStatus(ctx context.Context, status *core.DocumentStatus) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		status.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalDocumentStatus(status)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDocumentStatusKey(status.DocumentId), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocumentStatus retrieves the status of a document.
func (r *DocumentStatusRepository) GetDocumentStatus(ctx context.Context, documentID string) (*core.DocumentStatus, error) {
	var result *core.DocumentStatus
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentStatusKey(documentID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalDocumentStatus(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListDocumentStatuses returns the status of every known document.
func (r *DocumentStatusRepository) ListDocumentStatuses(ctx context.Context) ([]*core.DocumentStatus, error) {
	var results []*core.DocumentStatus
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentStatusPrefix + ":")

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var status *core.DocumentStatus
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				status, err = storage.UnmarshalDocumentStatus(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, status)
		}
		return nil
	}, false)
	return results, err
}

// DeleteDocumentStatus removes a document's status entry.
func (r *DocumentStatusRepository) DeleteDocumentStatus(ctx context.Context, documentID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentStatusKey(documentID)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
