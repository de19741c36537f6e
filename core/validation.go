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


package core

import (
	"fmt"
	"time"
)

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Role must be user or assistant (system messages are never persisted)
//   - CreatedAt must not be in the future
//
// NOT validated:
//   - ID (0 is valid from database sequences)
//   - Metadata (optional)
func ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if message.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if err := ValidateRole(message.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if !IsValidTimestamp(message.CreatedAt) {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateConversation validates a Conversation according to domain rules.
//
// Validation rules:
//   - ChatbotId must not be empty
//   - SessionId must not be empty
//
// NOT validated (maintained by the memory manager):
//   - MessageCount, FirstMessageAt, LastMessageAt
func ValidateConversation(conversation *Conversation) error {
	if conversation == nil {
		return fmt.Errorf("%w: conversation is nil", ErrInvalidConversation)
	}

	if conversation.ChatbotId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConversation, ErrEmptyChatbotId)
	}

	if conversation.SessionId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConversation, ErrEmptySessionId)
	}

	return nil
}

// ValidateUsageRecord validates a UsageRecord according to domain rules.
//
// Validation rules:
//   - Model must not be empty
//   - Token counts must not be negative
func ValidateUsageRecord(record *UsageRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidUsageRecord)
	}

	if record.Model == "" {
		return fmt.Errorf("%w: %w", ErrInvalidUsageRecord, ErrEmptyModel)
	}

	if record.InputTokens < 0 || record.OutputTokens < 0 || record.TotalTokens < 0 {
		return fmt.Errorf("%w: token counts cannot be negative", ErrInvalidUsageRecord)
	}

	return nil
}

// ValidateRole checks that a Role is one of the persistable values.
func ValidateRole(role Role) error {
	switch role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

// IsValidTimestamp returns true if the timestamp is not in the future.
// A small clock-skew allowance of one minute is tolerated.
func IsValidTimestamp(t time.Time) bool {
	return !t.After(time.Now().Add(time.Minute))
}
