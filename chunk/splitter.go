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


// Package chunk splits long text into overlapping, token-bounded segments.
package chunk

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/poiesic/chatforge/core"
)

const (
	// DefaultMaxTokens is the default window size in tokenizer tokens.
	DefaultMaxTokens = 1000

	// DefaultOverlap is the default number of tokens shared between
	// consecutive windows.
	DefaultOverlap = 100

	defaultEncoding = "cl100k_base"
)

// Splitter turns long text into overlapping, token-bounded segments.
// A Splitter is safe for concurrent use.
type Splitter struct {
	maxTokens int
	overlap   int
	encoding  string
	logger    *slog.Logger

	initOnce sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithMaxTokens sets the window size in tokens.
func WithMaxTokens(maxTokens int) Option {
	return func(s *Splitter) error {
		if maxTokens <= 0 {
			return ErrInvalidMaxTokens
		}
		s.maxTokens = maxTokens
		return nil
	}
}

// WithOverlap sets the number of tokens shared between consecutive windows.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) error {
		if overlap < 0 {
			return ErrInvalidOverlap
		}
		s.overlap = overlap
		return nil
	}
}

// WithEncoding sets the tiktoken encoding name.
// Default is "cl100k_base".
func WithEncoding(encoding string) Option {
	return func(s *Splitter) error {
		if encoding == "" {
			return ErrInvalidEncoding
		}
		s.encoding = encoding
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSplitter creates a splitter with the given options.
// Construction fails if overlap >= maxTokens: a window that advances by zero
// or a negative step would never terminate.
func NewSplitter(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		encoding:  defaultEncoding,
		logger:    slog.Default().With("component", "chunk-splitter"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.overlap >= s.maxTokens {
		return nil, ErrOverlapTooLarge
	}

	return s, nil
}

// Split divides text into token-bounded segments.
//
// Text that fits within the token budget is returned as a single segment.
// Otherwise a window of maxTokens tokens slides over the text, advancing by
// maxTokens-overlap each step; each window is decoded back to text, trimmed,
// and kept only if longer than core.MinChunkLength characters.
//
// If the tokenizer cannot be initialized, the entire input is returned as a
// single segment rather than failing the caller's ingestion.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	enc, err := s.tokenizer()
	if err != nil {
		s.logger.Warn("tokenizer unavailable, returning whole text as one chunk", "err", err)
		return []string{text}
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= s.maxTokens {
		return []string{text}
	}

	step := s.maxTokens - s.overlap
	var segments []string
	for start := 0; start < len(tokens); start += step {
		end := start + s.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		decoded := strings.TrimSpace(enc.Decode(tokens[start:end]))
		if len(decoded) > core.MinChunkLength {
			segments = append(segments, decoded)
		}

		if end == len(tokens) {
			break
		}
	}

	return segments
}

// EstimateTokens returns the token count for text, falling back to a
// character-count heuristic (~3.5 characters per token) when the tokenizer
// is unavailable.
func (s *Splitter) EstimateTokens(text string) int {
	enc, err := s.tokenizer()
	if err != nil {
		return int(float64(len(text)) / 3.5)
	}
	return len(enc.Encode(text, nil, nil))
}

// tokenizer lazily initializes the tiktoken encoding.
// Initialization may fetch the BPE ranks, so it runs once and the result
// (or error) is reused for the lifetime of the splitter.
func (s *Splitter) tokenizer() (*tiktoken.Tiktoken, error) {
	s.initOnce.Do(func() {
		s.enc, s.initErr = tiktoken.GetEncoding(s.encoding)
	})
	return s.enc, s.initErr
}
