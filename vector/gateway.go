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


// Package vector provides the multi-tenant gateway to the vector store.
//
// Every record carries exactly one namespace derived from (tenant, resource);
// the namespace is the sole isolation boundary and is required on every read
// and write. Deletes escalate through three strategies because filter-based
// deletes are unreliable on some backends.
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/chatforge/core"
)

const (
	// upsertBatchSize bounds backend load: batches within one call are
	// written sequentially, each awaited before the next begins.
	upsertBatchSize = 100

	// scrollPageSize is the page size used by the delete fallback tiers.
	scrollPageSize = 256

	payloadKeyNamespace  = "namespace"
	payloadKeyOriginalID = "original_id"
	payloadKeyCreatedAt  = "created_at"
	payloadKeyDocumentID = "document_id"
)

// Record is an externally-identified vector pending upsert.
type Record struct {
	ID        string // External string id; hashed to the numeric point id
	Embedding []float32
	Payload   map[string]any
}

// Gateway mediates all vector store access: tenant namespacing, batched
// upserts, similarity search, and resilient deletes.
//
// The backend connection is verified lazily: the first operation performs a
// connectivity check and ensures the collection exists, exactly once, behind
// a mutex guard so concurrent first uses are serialized.
type Gateway struct {
	backend    Backend
	collection string
	dimension  int
	distance   Distance
	logger     *slog.Logger

	mu      sync.Mutex
	ready   bool
	readyAt time.Time
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithCollection sets the collection name.
// Default is "chatforge_chunks".
func WithCollection(name string) Option {
	return func(g *Gateway) error {
		if name == "" {
			return fmt.Errorf("collection name cannot be empty")
		}
		g.collection = name
		return nil
	}
}

// WithDistance sets the similarity metric.
// Default is cosine.
func WithDistance(distance Distance) Option {
	return func(g *Gateway) error {
		g.distance = distance
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		return nil
	}
}

// NewGateway creates a gateway over the given backend.
// dimension is the fixed embedding dimension for the collection.
func NewGateway(backend Backend, dimension int, opts ...Option) (*Gateway, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	g := &Gateway{
		backend:    backend,
		collection: "chatforge_chunks",
		dimension:  dimension,
		distance:   DistanceCosine,
		logger:     slog.Default().With("component", "vector-gateway"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// NamespaceFor derives the isolation key for a (tenant, resource) pair.
// The derivation is pure and deterministic: the same pair always yields the
// same namespace.
func NamespaceFor(tenantID, resourceID string) string {
	return "ns_" + sanitizeKey(tenantID) + "_" + sanitizeKey(resourceID)
}

func sanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ensureReady performs the one-time connectivity check and collection setup.
// Concurrent first uses are serialized; the health check runs exactly once.
func (g *Gateway) ensureReady(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return nil
	}

	if err := g.backend.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vector backend health check: %w", err)
	}

	existed, err := g.backend.EnsureCollection(ctx, g.collection, g.dimension, g.distance)
	if err != nil {
		return fmt.Errorf("ensure collection %s: %w", g.collection, err)
	}

	g.ready = true
	g.readyAt = time.Now().UTC()
	g.logger.Info("vector gateway ready", "collection", g.collection, "dimension", g.dimension, "existed", existed)
	return nil
}

// EnsureCollection creates the gateway's collection if needed.
// Idempotent: a second call with identical parameters reports existed=true
// and performs no modification.
func (g *Gateway) EnsureCollection(ctx context.Context) (bool, error) {
	if err := g.ensureReady(ctx); err != nil {
		return false, err
	}
	return g.backend.EnsureCollection(ctx, g.collection, g.dimension, g.distance)
}

// Upsert writes records into the namespace in batches of 100, each batch
// awaited before the next begins.
//
// External string ids are hashed to deterministic 64-bit numeric ids; the
// original id is kept in the payload for disambiguation since hash collisions
// are theoretically possible. The namespace and creation time are attached to
// every payload.
func (g *Gateway) Upsert(ctx context.Context, namespace string, records []Record) error {
	if namespace == "" {
		return ErrEmptyNamespace
	}
	if len(records) == 0 {
		return nil
	}
	if err := g.ensureReady(ctx); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	points := make([]Point, len(records))
	for i, record := range records {
		if len(record.Embedding) != g.dimension {
			return fmt.Errorf("%w: record %s has dimension %d, collection expects %d",
				ErrDimensionMismatch, record.ID, len(record.Embedding), g.dimension)
		}

		payload := make(map[string]any, len(record.Payload)+3)
		for k, v := range record.Payload {
			payload[k] = v
		}
		payload[payloadKeyNamespace] = namespace
		payload[payloadKeyOriginalID] = record.ID
		payload[payloadKeyCreatedAt] = now

		points[i] = Point{
			ID:      uint64(core.IDFromString(record.ID)),
			Vector:  record.Embedding,
			Payload: payload,
		}
	}

	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := g.backend.Upsert(ctx, g.collection, points[start:end]); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}

	g.logger.Debug("upserted vectors", "namespace", namespace, "count", len(points))
	return nil
}

// Search performs similarity search within the namespace.
// The namespace is always ANDed into the filter; extraFilter adds further
// exact-match payload conditions.
func (g *Gateway) Search(ctx context.Context, namespace string, queryVector []float32, limit int, scoreThreshold float32, extraFilter Filter) ([]ScoredPoint, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	if len(queryVector) != g.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, collection expects %d",
			ErrDimensionMismatch, len(queryVector), g.dimension)
	}
	if err := g.ensureReady(ctx); err != nil {
		return nil, err
	}

	return g.backend.Search(ctx, g.collection, queryVector, g.namespacedFilter(namespace, extraFilter), limit, scoreThreshold)
}

// Delete removes every record in the namespace matching the filter, using a
// three-tier strategy:
//
//	Tier 1: delete-by-filter directly.
//	Tier 2: on failure, scroll the same filter to materialize concrete ids,
//	        then delete by explicit id list.
//	Tier 3: if tier 2 finds nothing (e.g. the backend rejects the filter
//	        predicate), scroll the entire namespace, match payloads
//	        client-side, then delete by id list.
//
// Returns the number of records removed.
func (g *Gateway) Delete(ctx context.Context, namespace string, filter Filter) (int, error) {
	if namespace == "" {
		return 0, ErrEmptyNamespace
	}
	if err := g.ensureReady(ctx); err != nil {
		return 0, err
	}

	full := g.namespacedFilter(namespace, filter)

	// Tier 1: direct filter delete.
	count, countErr := g.backend.Count(ctx, g.collection, full)
	if countErr == nil {
		if err := g.backend.DeleteByFilter(ctx, g.collection, full); err == nil {
			g.logger.Info("delete resolved by filter", "namespace", namespace, "removed", count)
			return count, nil
		} else {
			g.logger.Warn("filter delete failed, falling back to scroll", "namespace", namespace, "err", err)
		}
	} else {
		g.logger.Warn("count before filter delete failed, falling back to scroll", "namespace", namespace, "err", countErr)
	}

	// Tier 2: scroll the filter, delete by explicit ids.
	ids, scrollErr := g.scrollIDs(ctx, full, nil)
	if scrollErr != nil {
		g.logger.Warn("filtered scroll failed, falling back to full namespace scan", "namespace", namespace, "err", scrollErr)
	}
	if scrollErr == nil && len(ids) > 0 {
		if err := g.backend.DeleteByIDs(ctx, g.collection, ids); err != nil {
			return 0, fmt.Errorf("%w: delete by scrolled ids: %w", ErrDeleteFailed, err)
		}
		g.logger.Info("delete resolved by scroll", "namespace", namespace, "removed", len(ids))
		return len(ids), nil
	}

	// Tier 3: scroll the whole namespace, match payloads client-side.
	ids, err := g.scrollIDs(ctx, g.namespacedFilter(namespace, nil), filter)
	if err != nil {
		return 0, fmt.Errorf("%w: full namespace scan: %w", ErrDeleteFailed, err)
	}
	if len(ids) == 0 {
		g.logger.Info("delete matched no records", "namespace", namespace)
		return 0, nil
	}
	if err := g.backend.DeleteByIDs(ctx, g.collection, ids); err != nil {
		return 0, fmt.Errorf("%w: delete by scanned ids: %w", ErrDeleteFailed, err)
	}
	g.logger.Info("delete resolved by full scan", "namespace", namespace, "removed", len(ids))
	return len(ids), nil
}

// DeleteDocumentVectors removes all vectors belonging to one document.
// This is the cascading delete invoked when a training item is removed.
func (g *Gateway) DeleteDocumentVectors(ctx context.Context, namespace, documentID string) (int, error) {
	return g.Delete(ctx, namespace, Filter{payloadKeyDocumentID: documentID})
}

// scrollIDs pages through the collection collecting point ids.
// clientMatch, when non-nil, is applied against payloads client-side; it is
// used by tier 3 where the backend-side filter is reduced to the namespace.
func (g *Gateway) scrollIDs(ctx context.Context, backendFilter Filter, clientMatch Filter) ([]uint64, error) {
	var (
		ids    []uint64
		offset uint64
	)
	for {
		points, err := g.backend.Scroll(ctx, g.collection, backendFilter, scrollPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return ids, nil
		}

		for _, point := range points {
			if clientMatch == nil || payloadMatches(point.Payload, clientMatch) {
				ids = append(ids, point.ID)
			}
		}

		// Pages are ordered by id; resume after the last id seen.
		offset = points[len(points)-1].ID + 1
		if len(points) < scrollPageSize {
			return ids, nil
		}
	}
}

// payloadMatches reports whether every filter condition matches the payload
// exactly, comparing string renderings.
func payloadMatches(payload map[string]any, filter Filter) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

// namespacedFilter ANDs the namespace into a filter copy.
func (g *Gateway) namespacedFilter(namespace string, extra Filter) Filter {
	filter := make(Filter, len(extra)+1)
	for k, v := range extra {
		filter[k] = v
	}
	filter[payloadKeyNamespace] = namespace
	return filter
}
