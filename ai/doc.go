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


// Package ai provides the gateway between chatforge and AI providers.
//
// The package defines provider-agnostic interfaces (Generator, Embedder,
// Provider) plus the Gateway that layers cross-cutting behavior over them:
// per-user sliding-window rate limits, exponential-backoff retry of
// transient failures, and batched usage accounting.
//
// Provider implementations live in subpackages (gemini, openai, mock) and
// translate their SDK's failure modes into this package's error taxonomy,
// which is what makes the Gateway's transient/permanent retry decision
// provider-independent.
package ai
