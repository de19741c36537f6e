// Package mock provides an in-memory vector.Backend for tests.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/poiesic/chatforge/vector"
)

type collection struct {
	dimension int
	distance  vector.Distance
	points    map[uint64]vector.Point
}

// Backend is an in-memory Backend implementation. The function fields allow
// tests to inject failures per operation; when nil, the default in-memory
// behavior runs.
type Backend struct {
	mu          sync.Mutex
	collections map[string]*collection

	HealthCheckFunc    func(ctx context.Context) error
	CountFunc          func(ctx context.Context, collection string, filter vector.Filter) (int, error)
	DeleteByFilterFunc func(ctx context.Context, collection string, filter vector.Filter) error
	ScrollFunc         func(ctx context.Context, collection string, filter vector.Filter, limit int, offset uint64) ([]vector.Point, error)
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{collections: map[string]*collection{}}
}

func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.HealthCheckFunc != nil {
		return b.HealthCheckFunc(ctx)
	}
	return nil
}

func (b *Backend) EnsureCollection(_ context.Context, name string, dimension int, distance vector.Distance) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.collections[name]; ok {
		return true, nil
	}
	b.collections[name] = &collection{
		dimension: dimension,
		distance:  distance,
		points:    map[uint64]vector.Point{},
	}
	return false, nil
}

func (b *Backend) Upsert(_ context.Context, name string, points []vector.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		col.points[p.ID] = p
	}
	return nil
}

func (b *Backend) Search(_ context.Context, name string, queryVector []float32, filter vector.Filter, limit int, scoreThreshold float32) ([]vector.ScoredPoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return nil, err
	}

	var hits []vector.ScoredPoint
	for _, p := range col.points {
		if !matches(p.Payload, filter) {
			continue
		}
		score := dot(queryVector, p.Vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, vector.ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (b *Backend) Scroll(ctx context.Context, name string, filter vector.Filter, limit int, offset uint64) ([]vector.Point, error) {
	if b.ScrollFunc != nil {
		return b.ScrollFunc(ctx, name, filter, limit, offset)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return nil, err
	}

	var points []vector.Point
	for _, p := range col.points {
		if p.ID >= offset && matches(p.Payload, filter) {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ID < points[j].ID })
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

func (b *Backend) Count(ctx context.Context, name string, filter vector.Filter) (int, error) {
	if b.CountFunc != nil {
		return b.CountFunc(ctx, name, filter)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, p := range col.points {
		if matches(p.Payload, filter) {
			count++
		}
	}
	return count, nil
}

func (b *Backend) DeleteByFilter(ctx context.Context, name string, filter vector.Filter) error {
	if b.DeleteByFilterFunc != nil {
		return b.DeleteByFilterFunc(ctx, name, filter)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return err
	}
	for id, p := range col.points {
		if matches(p.Payload, filter) {
			delete(col.points, id)
		}
	}
	return nil
}

func (b *Backend) DeleteByIDs(_ context.Context, name string, ids []uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, err := b.collection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(col.points, id)
	}
	return nil
}

// PointCount reports the number of stored points, for test assertions.
func (b *Backend) PointCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	col, ok := b.collections[name]
	if !ok {
		return 0
	}
	return len(col.points)
}

func (b *Backend) collection(name string) (*collection, error) {
	col, ok := b.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", vector.ErrNotFound, name)
	}
	return col, nil
}

func matches(payload map[string]any, filter vector.Filter) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok || fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		if i >= len(b) {
			break
		}
		sum += a[i] * b[i]
	}
	return sum
}
