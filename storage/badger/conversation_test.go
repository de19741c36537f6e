package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

func newTestBackend(t *testing.T) *Backend {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestAddAndGetConversation(t *testing.T) {
	ctx := context.Background()
	repo, err := NewConversationRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	conv := &core.Conversation{
		ChatbotId: "bot-1",
		SessionId: "session-1",
		IsActive:  true,
	}

	added, err := repo.AddConversations(ctx, conv)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].Id)
	assert.False(t, added[0].InsertedAt.IsZero())

	got, err := repo.GetConversation(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "bot-1", got.ChatbotId)
	assert.Equal(t, "session-1", got.SessionId)
	assert.True(t, got.IsActive)
}

func TestFindConversationBySession(t *testing.T) {
	ctx := context.Background()
	repo, err := NewConversationRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.AddConversations(ctx,
		&core.Conversation{ChatbotId: "bot-1", SessionId: "session-a"},
		&core.Conversation{ChatbotId: "bot-1", SessionId: "session-b"},
	)
	require.NoError(t, err)

	got, err := repo.FindConversationBySession(ctx, "bot-1", "session-b")
	require.NoError(t, err)
	assert.Equal(t, "session-b", got.SessionId)

	_, err = repo.FindConversationBySession(ctx, "bot-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateConversation(t *testing.T) {
	ctx := context.Background()
	repo, err := NewConversationRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	added, err := repo.AddConversations(ctx, &core.Conversation{ChatbotId: "bot-1", SessionId: "s"})
	require.NoError(t, err)

	conv := added[0]
	conv.MessageCount = 4
	_, err = repo.UpdateConversations(ctx, conv)
	require.NoError(t, err)

	got, err := repo.GetConversation(ctx, conv.Id)
	require.NoError(t, err)
	assert.Equal(t, 4, got.MessageCount)
}

func TestUpdateMissingConversation(t *testing.T) {
	ctx := context.Background()
	repo, err := NewConversationRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.UpdateConversations(ctx, &core.Conversation{Id: 999, ChatbotId: "x", SessionId: "y"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteConversationCleansSessionIndex(t *testing.T) {
	ctx := context.Background()
	repo, err := NewConversationRepository(newTestBackend(t))
	require.NoError(t, err)
	defer repo.Close()

	added, err := repo.AddConversations(ctx, &core.Conversation{ChatbotId: "bot-1", SessionId: "s"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteConversations(ctx, added[0].Id))

	_, err = repo.GetConversation(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.FindConversationBySession(ctx, "bot-1", "s")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
