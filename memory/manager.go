// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package memory maintains conversation history and turns it into context
// for generation requests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/storage"
)

const (
	// DefaultHistoryLimit bounds how many messages History returns when the
	// caller does not say.
	DefaultHistoryLimit = 20

	// TruncationMarker is prepended to a context that did not fit its
	// character budget.
	TruncationMarker = "[Earlier messages truncated]"
)

// ContextResult is the outcome of building conversation context.
type ContextResult struct {
	Context      string
	HasMemory    bool
	MessageCount int
}

// Manager owns conversation threads and their messages.
type Manager struct {
	conversations storage.ConversationRepository
	messages      storage.MessageRepository
	logger        *slog.Logger
}

// NewManager creates a Manager over the given repositories.
func NewManager(conversations storage.ConversationRepository, messages storage.MessageRepository) (*Manager, error) {
	if conversations == nil {
		return nil, ErrConversationRepoRequired
	}
	if messages == nil {
		return nil, ErrMessageRepoRequired
	}
	return &Manager{
		conversations: conversations,
		messages:      messages,
		logger:        slog.Default().With("component", "memory-manager"),
	}, nil
}

// GetOrCreate returns the conversation for a (chatbot, session) pair,
// creating it on first contact.
func (m *Manager) GetOrCreate(ctx context.Context, chatbotID, sessionID string) (*core.Conversation, error) {
	conversation := &core.Conversation{ChatbotId: chatbotID, SessionId: sessionID}
	if err := core.ValidateConversation(conversation); err != nil {
		return nil, err
	}

	existing, err := m.conversations.FindConversationBySession(ctx, chatbotID, sessionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	conversation.IsActive = true
	added, err := m.conversations.AddConversations(ctx, conversation)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("created conversation", "chatbot", chatbotID, "session", sessionID, "id", added[0].Id)
	return added[0], nil
}

// Get returns a conversation by id.
func (m *Manager) Get(ctx context.Context, id core.ID) (*core.Conversation, error) {
	return m.conversations.GetConversation(ctx, id)
}

// StoreMessage appends a message to a conversation and refreshes the
// conversation's counters. The message count is recomputed from the stored
// messages rather than incremented, so the counter self-heals after a crash
// between insert and update.
func (m *Manager) StoreMessage(ctx context.Context, conversationID core.ID, role core.Role, content string) (*core.Message, error) {
	message := &core.Message{
		ConversationId: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := core.ValidateMessage(message); err != nil {
		return nil, err
	}

	conversation, err := m.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	added, err := m.messages.AddMessages(ctx, message)
	if err != nil {
		return nil, err
	}
	message = added[0]

	count, err := m.messages.CountConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	conversation.MessageCount = count
	conversation.LastMessageAt = message.CreatedAt
	if conversation.FirstMessageAt.IsZero() {
		conversation.FirstMessageAt = message.CreatedAt
	}
	conversation.IsActive = true

	if _, err := m.conversations.UpdateConversations(ctx, conversation); err != nil {
		return nil, err
	}
	return message, nil
}

// History returns up to limit messages of a conversation in chronological
// order, oldest first. limit <= 0 uses DefaultHistoryLimit.
func (m *Manager) History(ctx context.Context, conversationID core.ID, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// The repository returns newest first; reverse for chronological order.
	messages, err := m.messages.GetConversationMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// BuildContext renders up to maxMessages of history into a transcript capped
// at maxChars characters. When older messages do not fit, the transcript
// keeps the most recent ones and starts with the truncation marker. The
// marker counts against the budget, so the result never exceeds maxChars.
func (m *Manager) BuildContext(ctx context.Context, conversationID core.ID, maxMessages, maxChars int) (*ContextResult, error) {
	messages, err := m.History(ctx, conversationID, maxMessages)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return &ContextResult{}, nil
	}

	lines := make([]string, len(messages))
	for i, message := range messages {
		lines[i] = formatLine(message)
	}

	kept, truncated := fitLines(lines, maxChars)
	if truncated {
		// Redo the fit with the marker's line charged against the budget.
		budget := maxChars - len(TruncationMarker) - 1
		if budget > 0 {
			kept, _ = fitLines(lines, budget)
		} else {
			kept = nil
		}
	}

	var sb strings.Builder
	if truncated && len(kept) > 0 {
		sb.WriteString(TruncationMarker)
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(kept, "\n"))

	return &ContextResult{
		Context:      sb.String(),
		HasMemory:    len(kept) > 0,
		MessageCount: len(messages),
	}, nil
}

// fitLines keeps lines newest to oldest until the character budget runs out.
// budget <= 0 means unlimited.
func fitLines(lines []string, budget int) ([]string, bool) {
	var kept []string
	used := 0
	for i := len(lines) - 1; i >= 0; i-- {
		cost := len(lines[i]) + 1
		if budget > 0 && used+cost > budget {
			return kept, true
		}
		kept = append([]string{lines[i]}, kept...)
		used += cost
	}
	return kept, false
}

func formatLine(message *core.Message) string {
	speaker := "User"
	if message.Role == core.RoleAssistant {
		speaker = "Assistant"
	}
	return fmt.Sprintf("%s: %s", speaker, message.Content)
}
