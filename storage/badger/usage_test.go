package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

func TestUsageByDateRange(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUsageRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.AddUsageRecords(ctx, &core.UsageRecord{
			UserId:       "user-1",
			Model:        "gemini-2.0-flash",
			Provider:     "gemini",
			InputTokens:  100,
			OutputTokens: 50,
			TotalTokens:  150,
			Success:      true,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	records, err := repo.GetUsageByDateRange(ctx, base.Add(time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, record := range records {
		assert.Equal(t, 150, record.TotalTokens)
	}
}

func TestUsageSetsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo, err := NewUsageRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	record := &core.UsageRecord{UserId: "u", Model: "m", Provider: "p"}
	require.NoError(t, repo.AddUsageRecords(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())
}

func TestDocumentStatusRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentStatusRepository(newTestBackend(t))

	err := repo.SetDocumentStatus(ctx, &core.DocumentStatus{
		DocumentId: "doc-1",
		State:      core.DocumentStateProcessing,
	})
	require.NoError(t, err)

	got, err := repo.GetDocumentStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStateProcessing, got.State)
	assert.False(t, got.UpdatedAt.IsZero())

	err = repo.SetDocumentStatus(ctx, &core.DocumentStatus{
		DocumentId: "doc-1",
		State:      core.DocumentStateCompleted,
		ChunkCount: 12,
	})
	require.NoError(t, err)

	got, err = repo.GetDocumentStatus(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStateCompleted, got.State)
	assert.Equal(t, 12, got.ChunkCount)

	statuses, err := repo.ListDocumentStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 1)

	require.NoError(t, repo.DeleteDocumentStatus(ctx, "doc-1"))
	_, err = repo.GetDocumentStatus(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
