package ai_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
)

type fakeUsageRepo struct {
	mu      sync.Mutex
	batches [][]*core.UsageRecord
}

func (f *fakeUsageRepo) AddUsageRecords(ctx context.Context, records ...*core.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeUsageRepo) GetUsageByDateRange(ctx context.Context, start, end time.Time) ([]*core.UsageRecord, error) {
	return nil, nil
}

func (f *fakeUsageRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeUsageRepo) Close() error { return nil }

func (f *fakeUsageRepo) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, batch := range f.batches {
		n += len(batch)
	}
	return n
}

func (f *fakeUsageRepo) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func usageEvent(i int) ai.UsageEvent {
	return ai.UsageEvent{
		UserId:      "user-1",
		Model:       "test-model",
		Provider:    "mock",
		TotalTokens: 100 + i,
		Success:     true,
	}
}

func TestUsageFlushesAtBatchSize(t *testing.T) {
	repo := &fakeUsageRepo{}
	recorder := ai.NewUsageRecorder(repo, ai.WithBatchSize(3), ai.WithFlushInterval(time.Hour))
	defer recorder.Close()

	for i := 0; i < 3; i++ {
		recorder.Record(usageEvent(i))
	}

	require.Eventually(t, func() bool { return repo.total() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, repo.batchCount())
}

func TestUsageFlushesOnInterval(t *testing.T) {
	repo := &fakeUsageRepo{}
	recorder := ai.NewUsageRecorder(repo, ai.WithBatchSize(100), ai.WithFlushInterval(20*time.Millisecond))
	defer recorder.Close()

	recorder.Record(usageEvent(0))
	recorder.Record(usageEvent(1))

	require.Eventually(t, func() bool { return repo.total() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestUsageCloseFlushesRemainder(t *testing.T) {
	repo := &fakeUsageRepo{}
	recorder := ai.NewUsageRecorder(repo, ai.WithBatchSize(100), ai.WithFlushInterval(time.Hour))

	for i := 0; i < 4; i++ {
		recorder.Record(usageEvent(i))
	}
	require.NoError(t, recorder.Close())

	assert.Equal(t, 4, repo.total())
}

func TestUsageSetsCreatedAt(t *testing.T) {
	repo := &fakeUsageRepo{}
	recorder := ai.NewUsageRecorder(repo, ai.WithBatchSize(1), ai.WithFlushInterval(time.Hour))
	defer recorder.Close()

	recorder.Record(ai.UsageEvent{UserId: "u", Model: "m", Provider: "p"})

	require.Eventually(t, func() bool { return repo.total() == 1 }, 2*time.Second, 10*time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.False(t, repo.batches[0][0].CreatedAt.IsZero())
}
