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


// Package chat answers end-user questions: it resolves the conversation,
// enhances the question with memory, retrieves relevant document chunks,
// and routes the final prompt through the AI gateway.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/chatforge/ai"
	"github.com/poiesic/chatforge/core"
	"github.com/poiesic/chatforge/memory"
	"github.com/poiesic/chatforge/storage"
	"github.com/poiesic/chatforge/vector"
)

const (
	// ApologyReply is returned when generation fails after retries.
	// The conversation survives; the user can simply ask again.
	ApologyReply = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

	defaultModel          = "gemini-2.0-flash"
	defaultSearchLimit    = 5
	defaultScoreThreshold = 0.35

	basePrompt = "You are a helpful assistant. Answer using the provided document excerpts when they are relevant; say so when they are not."
)

// Request is one user message addressed to a chatbot.
type Request struct {
	TenantId       string
	ChatbotId      string
	SessionId      string
	UserId         string
	ConversationId core.ID // Optional; resolved from the session when zero
	Message        string
}

// Response is the assistant's reply.
type Response struct {
	ConversationId core.ID
	Reply          string
	Sources        []string // Document ids of the excerpts used
	UsedFallback   bool     // True when the reply is the apology message
}

// Service orchestrates one chat turn end to end.
type Service struct {
	manager      *memory.Manager
	orchestrator *memory.Orchestrator
	gateway      *ai.Gateway
	embedder     ai.Embedder
	vectors      *vector.Gateway
	logger       *slog.Logger

	model          string
	systemPrompt   string
	searchLimit    int
	scoreThreshold float32
}

// Option configures a Service.
type Option func(*Service) error

// WithModel sets the generation model.
// Default is gemini-2.0-flash.
func WithModel(model string) Option {
	return func(s *Service) error {
		if model == "" {
			return ai.ErrEmptyModel
		}
		s.model = model
		return nil
	}
}

// WithSystemPrompt overrides the base system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) error {
		s.systemPrompt = prompt
		return nil
	}
}

// WithSearchLimit sets how many document excerpts are retrieved per question.
// Default is 5.
func WithSearchLimit(limit int) Option {
	return func(s *Service) error {
		if limit < 1 {
			return fmt.Errorf("search limit must be positive")
		}
		s.searchLimit = limit
		return nil
	}
}

// WithScoreThreshold sets the minimum similarity for retrieved excerpts.
func WithScoreThreshold(threshold float32) Option {
	return func(s *Service) error {
		s.scoreThreshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService wires the chat service.
func NewService(
	manager *memory.Manager,
	orchestrator *memory.Orchestrator,
	gateway *ai.Gateway,
	embedder ai.Embedder,
	vectors *vector.Gateway,
	opts ...Option,
) (*Service, error) {
	if manager == nil || orchestrator == nil {
		return nil, memory.ErrManagerRequired
	}
	if gateway == nil {
		return nil, ai.ErrProviderRequired
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if vectors == nil {
		return nil, vector.ErrBackendRequired
	}

	s := &Service{
		manager:        manager,
		orchestrator:   orchestrator,
		gateway:        gateway,
		embedder:       embedder,
		vectors:        vectors,
		logger:         slog.Default().With("component", "chat"),
		model:          defaultModel,
		systemPrompt:   basePrompt,
		searchLimit:    defaultSearchLimit,
		scoreThreshold: defaultScoreThreshold,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// HandleMessage runs one chat turn. Generation failures degrade to an
// apology reply instead of an error; the exchange is stored either way so
// the conversation stays coherent.
func (s *Service) HandleMessage(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, core.ErrEmptyContent
	}

	conversation, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	enhanced := s.orchestrator.Enhance(ctx, conversation.Id, req.Message)

	// The user's turn goes on the record before generation starts, so a
	// crash or cancellation mid-generation cannot lose it.
	if storeErr := s.orchestrator.StoreUserMessage(ctx, conversation.Id, req.Message); storeErr != nil {
		s.logger.Error("failed to store user message", "conversation", conversation.Id, "err", storeErr)
	}

	excerpts, sources := s.retrieve(ctx, req, enhanced.Question)

	result, err := s.gateway.Generate(ctx, &ai.GenerationRequest{
		UserId:       req.UserId,
		ChatbotId:    req.ChatbotId,
		Model:        s.model,
		SystemPrompt: s.buildSystemPrompt(excerpts),
		Messages:     []ai.ChatMessage{{Role: core.RoleUser, Content: enhanced.Question}},
	})

	response := &Response{ConversationId: conversation.Id, Sources: sources}
	if err != nil {
		s.logger.Error("generation failed, sending apology", "conversation", conversation.Id, "err", err)
		response.Reply = ApologyReply
		response.UsedFallback = true
	} else {
		response.Reply = result.Text
	}

	if storeErr := s.orchestrator.StoreAssistantMessage(ctx, conversation.Id, response.Reply); storeErr != nil {
		s.logger.Error("failed to store assistant message", "conversation", conversation.Id, "err", storeErr)
	}

	return response, nil
}

// resolveConversation picks the conversation for a request. A conversation id
// that no longer resolves falls back to the session lookup instead of failing
// the request.
func (s *Service) resolveConversation(ctx context.Context, req *Request) (*core.Conversation, error) {
	if req.ConversationId != 0 {
		conversation, err := s.manager.Get(ctx, req.ConversationId)
		if err == nil {
			return conversation, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		s.logger.Debug("conversation not found, starting a new one", "conversation", req.ConversationId)
	}
	return s.manager.GetOrCreate(ctx, req.ChatbotId, req.SessionId)
}

// retrieve looks up document excerpts relevant to the question. Retrieval is
// best effort: a failing vector store leaves the assistant to answer from
// conversation memory alone.
func (s *Service) retrieve(ctx context.Context, req *Request, question string) ([]string, []string) {
	queryVector, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.logger.Warn("question embedding failed, skipping retrieval", "err", err)
		return nil, nil
	}

	namespace := vector.NamespaceFor(req.TenantId, req.ChatbotId)
	hits, err := s.vectors.Search(ctx, namespace, queryVector, s.searchLimit, s.scoreThreshold, nil)
	if err != nil {
		s.logger.Warn("retrieval failed, answering without excerpts", "namespace", namespace, "err", err)
		return nil, nil
	}

	var (
		excerpts []string
		sources  []string
		seen     = map[string]bool{}
	)
	for _, hit := range hits {
		text, _ := hit.Payload["text"].(string)
		if text == "" {
			continue
		}
		excerpts = append(excerpts, text)
		if docID, _ := hit.Payload["document_id"].(string); docID != "" && !seen[docID] {
			seen[docID] = true
			sources = append(sources, docID)
		}
	}
	return excerpts, sources
}

func (s *Service) buildSystemPrompt(excerpts []string) string {
	if len(excerpts) == 0 {
		return s.systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(s.systemPrompt)
	sb.WriteString("\n\nDocument excerpts:\n")
	for i, excerpt := range excerpts {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, excerpt)
	}
	return sb.String()
}
