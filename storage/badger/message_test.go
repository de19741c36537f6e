package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/core"
)

func newTestMessageRepo(t *testing.T) *MessageRepository {
	repo, err := NewMessageRepository(newTestBackend(t))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addNumberedMessages(t *testing.T, repo *MessageRepository, conversationID core.ID, n int) {
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < n; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		_, err := repo.AddMessages(context.Background(), &core.Message{
			ConversationId: conversationID,
			Role:           role,
			Content:        fmt.Sprintf("message %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestGetConversationMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestMessageRepo(t)

	addNumberedMessages(t, repo, 1, 6)

	messages, err := repo.GetConversationMessages(ctx, 1, 4)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	assert.Equal(t, "message 5", messages[0].Content)
	assert.Equal(t, "message 2", messages[3].Content)
}

func TestGetConversationMessagesIsolatedByConversation(t *testing.T) {
	ctx := context.Background()
	repo := newTestMessageRepo(t)

	addNumberedMessages(t, repo, 1, 3)
	addNumberedMessages(t, repo, 2, 5)

	messages, err := repo.GetConversationMessages(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 3)

	count, err := repo.CountConversationMessages(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCountEmptyConversation(t *testing.T) {
	repo := newTestMessageRepo(t)

	count, err := repo.CountConversationMessages(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteConversationMessages(t *testing.T) {
	ctx := context.Background()
	repo := newTestMessageRepo(t)

	addNumberedMessages(t, repo, 1, 4)
	addNumberedMessages(t, repo, 2, 2)

	require.NoError(t, repo.DeleteConversationMessages(ctx, 1))

	count, err := repo.CountConversationMessages(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountConversationMessages(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
