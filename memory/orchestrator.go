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


package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/chatforge/core"
)

const (
	// historyFetchLimit is how many recent messages the orchestrator
	// considers when enhancing a question.
	historyFetchLimit = 15

	// fullContextMaxChars bounds the transcript attached to back-referencing
	// questions.
	fullContextMaxChars = 4000

	// Light context: a few recent turns, aggressively truncated, for
	// questions that stand on their own.
	lightContextMessages  = 3
	lightContextCharLimit = 100
)

// Orchestrator decides how much conversation memory a question needs and
// rewrites the question with that context attached.
//
// Memory failures never fail the question: on any storage error the original
// question passes through unchanged.
type Orchestrator struct {
	manager  *Manager
	detector ReferenceDetector
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil detector falls back to the
// keyword detector.
func NewOrchestrator(manager *Manager, detector ReferenceDetector) (*Orchestrator, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}
	if detector == nil {
		detector = KeywordDetector{}
	}
	return &Orchestrator{
		manager:  manager,
		detector: detector,
		logger:   slog.Default().With("component", "memory-orchestrator"),
	}, nil
}

// Enhancement is the outcome of enhancing a question with memory.
type Enhancement struct {
	// Question is the prompt to send: the original question, with context
	// prepended when memory was attached.
	Question string

	// HasMemory reports whether any conversation context was attached.
	HasMemory bool

	// FullMemory reports whether the full recent transcript was used
	// (back-referencing questions) rather than the light summary.
	FullMemory bool

	// Context is the attached context block, without the question.
	Context string
}

// Enhance rewrites the question with conversation context prepended.
// Back-referencing questions get the full recent transcript; standalone
// questions get a light summary of the last few turns. A conversation with
// no history, or any storage failure, leaves the question untouched.
func (o *Orchestrator) Enhance(ctx context.Context, conversationID core.ID, question string) *Enhancement {
	if o.detector.RefersBack(question) {
		result, err := o.manager.BuildContext(ctx, conversationID, historyFetchLimit, fullContextMaxChars)
		if err != nil {
			o.logger.Warn("context build failed, passing question through", "conversation", conversationID, "err", err)
			return &Enhancement{Question: question}
		}
		if !result.HasMemory {
			return &Enhancement{Question: question}
		}
		return &Enhancement{
			Question:   fmt.Sprintf("Context: %s\n\nCurrent question: %s", result.Context, question),
			HasMemory:  true,
			FullMemory: true,
			Context:    result.Context,
		}
	}

	light, err := o.lightContext(ctx, conversationID)
	if err != nil {
		o.logger.Warn("history fetch failed, passing question through", "conversation", conversationID, "err", err)
		return &Enhancement{Question: question}
	}
	if light == "" {
		return &Enhancement{Question: question}
	}
	return &Enhancement{
		Question:  fmt.Sprintf("Context: %s\n\nCurrent question: %s", light, question),
		HasMemory: true,
		Context:   light,
	}
}

// StoreUserMessage persists the user's side of an exchange. Callers write it
// before generation starts so the question survives a crash mid-generation.
func (o *Orchestrator) StoreUserMessage(ctx context.Context, conversationID core.ID, content string) error {
	if _, err := o.manager.StoreMessage(ctx, conversationID, core.RoleUser, content); err != nil {
		return fmt.Errorf("store user message: %w", err)
	}
	return nil
}

// StoreAssistantMessage persists the assistant's reply after generation.
func (o *Orchestrator) StoreAssistantMessage(ctx context.Context, conversationID core.ID, content string) error {
	if _, err := o.manager.StoreMessage(ctx, conversationID, core.RoleAssistant, content); err != nil {
		return fmt.Errorf("store assistant message: %w", err)
	}
	return nil
}

// Store persists one completed exchange: user message first, then assistant
// reply. If the assistant store fails, the user message stays; a lone user
// message is valid history and the exchange is not rolled back.
func (o *Orchestrator) Store(ctx context.Context, conversationID core.ID, userContent, assistantContent string) error {
	if err := o.StoreUserMessage(ctx, conversationID, userContent); err != nil {
		return err
	}
	return o.StoreAssistantMessage(ctx, conversationID, assistantContent)
}

// lightContext renders the last few turns, each clipped, joined with
// semicolons.
func (o *Orchestrator) lightContext(ctx context.Context, conversationID core.ID) (string, error) {
	messages, err := o.manager.History(ctx, conversationID, lightContextMessages)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(messages))
	for _, message := range messages {
		parts = append(parts, clipToRune(message.Content, lightContextCharLimit))
	}
	return strings.Join(parts, "; "), nil
}

// clipToRune shortens s to at most limit bytes without splitting a rune.
func clipToRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
