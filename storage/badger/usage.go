package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

// UsageRepository implements storage.UsageRepository for BadgerDB.
type UsageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.UsageRepository = (*UsageRepository)(nil)

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(backend *Backend) (*UsageRepository, error) {
	idSeq, err := backend.GetSequence(usageIDSeq)
	if err != nil {
		return nil, err
	}

	return &UsageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *UsageRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *UsageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddUsageRecords persists one or more usage records.
func (r *UsageRepository) AddUsageRecords(ctx context.Context, records ...*core.UsageRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if record.CreatedAt.IsZero() {
				record.CreatedAt = time.Now().UTC()
			}

			seq, err := r.idSeq.Next()
			if err != nil {
				return err
			}

			value, err := storage.MarshalUsageRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeUsageKey(record.CreatedAt, seq), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetUsageByDateRange retrieves usage records where start <= CreatedAt < end.
func (r *UsageRepository) GetUsageByDateRange(ctx context.Context, start, end time.Time) ([]*core.UsageRecord, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.UsageRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialUsageKey(start)
		endKey := makePartialUsageKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		prefix := []byte(usagePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}
			if slices.Compare(key[:len(endKey)], endKey) >= 0 {
				break
			}

			var record *core.UsageRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalUsageRecord(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)

	return results, err
}
