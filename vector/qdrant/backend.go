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


// Package qdrant implements the vector.Backend interface over a Qdrant
// server using the official gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/chatforge/vector"
)

// Backend talks to a Qdrant server over gRPC.
type Backend struct {
	client *qdrant.Client
	logger *slog.Logger
}

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// NewBackend connects to a Qdrant server.
func NewBackend(cfg Config, logger *slog.Logger) (*Backend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if logger == nil {
		logger = slog.Default().With("component", "qdrant")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Backend{client: client, logger: logger}, nil
}

// Close tears down the gRPC connection.
func (b *Backend) Close() error {
	return b.client.Close()
}

// HealthCheck verifies the server responds.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if _, err := b.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection if it does not already exist.
func (b *Backend) EnsureCollection(ctx context.Context, name string, dimension int, distance vector.Distance) (bool, error) {
	exists, err := b.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return true, nil
	}

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: toQdrantDistance(distance),
		}),
	})
	if err != nil {
		return false, fmt.Errorf("create collection %s: %w", name, err)
	}

	b.logger.Info("created collection", "name", name, "dimension", dimension)
	return false, nil
}

func (b *Backend) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: toQdrantPayload(p.Payload),
		}
	}

	_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (b *Backend) Search(ctx context.Context, collection string, queryVector []float32, filter vector.Filter, limit int, scoreThreshold float32) ([]vector.ScoredPoint, error) {
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(scoreThreshold)
	}

	hits, err := b.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]vector.ScoredPoint, len(hits))
	for i, hit := range hits {
		results[i] = vector.ScoredPoint{
			ID:      hit.Id.GetNum(),
			Score:   hit.Score,
			Payload: fromQdrantPayload(hit.Payload),
		}
	}
	return results, nil
}

func (b *Backend) Scroll(ctx context.Context, collection string, filter vector.Filter, limit int, offset uint64) ([]vector.Point, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if offset > 0 {
		req.Offset = qdrant.NewIDNum(offset)
	}

	retrieved, err := b.client.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scroll: %w", err)
	}

	points := make([]vector.Point, len(retrieved))
	for i, p := range retrieved {
		points[i] = vector.Point{
			ID:      p.Id.GetNum(),
			Payload: fromQdrantPayload(p.Payload),
		}
	}
	return points, nil
}

func (b *Backend) Count(ctx context.Context, collection string, filter vector.Filter) (int, error) {
	count, err := b.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(filter),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(count), nil
}

func (b *Backend) DeleteByFilter(ctx context.Context, collection string, filter vector.Filter) error {
	_, err := b.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: toQdrantFilter(filter),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete by filter: %w", err)
	}
	return nil
}

func (b *Backend) DeleteByIDs(ctx context.Context, collection string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(id)
	}

	_, err := b.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete %d points by id: %w", len(ids), err)
	}
	return nil
}

func toQdrantDistance(d vector.Distance) qdrant.Distance {
	switch d {
	case vector.DistanceEuclidean:
		return qdrant.Distance_Euclid
	case vector.DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func toQdrantFilter(filter vector.Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter))
	for field, value := range filter {
		must = append(must, qdrant.NewMatch(field, value))
	}
	return &qdrant.Filter{Must: must}
}

func toQdrantPayload(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			out[key] = qdrant.NewValueString(v)
		case int:
			out[key] = qdrant.NewValueInt(int64(v))
		case int64:
			out[key] = qdrant.NewValueInt(v)
		case float64:
			out[key] = qdrant.NewValueDouble(v)
		case bool:
			out[key] = qdrant.NewValueBool(v)
		default:
			out[key] = qdrant.NewValueString(fmt.Sprintf("%v", v))
		}
	}
	return out
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch kind := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[key] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[key] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[key] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[key] = kind.BoolValue
		default:
			out[key] = value.String()
		}
	}
	return out
}
