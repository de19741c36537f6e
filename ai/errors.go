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


package ai

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyRequest indicates a generation request with no messages.
	ErrEmptyRequest = errors.New("request has no messages")

	// ErrEmptyModel indicates a request without a model identifier.
	ErrEmptyModel = errors.New("model required")

	// ErrEmptyResponse indicates the provider returned no usable candidates.
	ErrEmptyResponse = errors.New("provider returned empty response")

	// ErrProviderRequired is returned when a gateway is built without providers.
	ErrProviderRequired = errors.New("at least one provider required")

	// ErrInvalidMaxAttempts indicates a non-positive retry attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)

// RateLimitError indicates the caller exhausted their request budget.
// ResetIn tells the caller how long until the window frees up.
type RateLimitError struct {
	Model   string
	Limit   int
	ResetIn time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for model %s (%d/min), retry in %s", e.Model, e.Limit, e.ResetIn.Round(time.Second))
}

// QuotaExceededError indicates the provider account has run out of quota.
// Not transient; retrying will not help until the quota resets.
type QuotaExceededError struct {
	Provider string
	Err      error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %v", e.Provider, e.Err)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// AuthError indicates an invalid or revoked credential.
type AuthError struct {
	Provider string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SafetyBlockError indicates the provider refused the content.
type SafetyBlockError struct {
	Provider string
	Reason   string
}

func (e *SafetyBlockError) Error() string {
	return fmt.Sprintf("%s blocked content: %s", e.Provider, e.Reason)
}

// ServiceUnavailableError indicates a transient provider failure worth retrying.
type ServiceUnavailableError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// UnknownProviderError indicates a request named a model whose provider is
// not registered with the gateway.
type UnknownProviderError struct {
	Model    string
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no provider %q registered for model %q", e.Provider, e.Model)
}

// IsTransient reports whether an error is worth retrying. Rate limits,
// quota exhaustion, bad credentials, and safety blocks are permanent within
// a request's lifetime; service unavailability and unclassified failures
// (network resets, timeouts) are not.
func IsTransient(err error) bool {
	var (
		rateLimit   *RateLimitError
		quota       *QuotaExceededError
		auth        *AuthError
		safetyBlock *SafetyBlockError
	)
	if errors.As(err, &rateLimit) || errors.As(err, &quota) ||
		errors.As(err, &auth) || errors.As(err, &safetyBlock) {
		return false
	}
	if errors.Is(err, ErrEmptyRequest) || errors.Is(err, ErrEmptyModel) {
		return false
	}
	return true
}
