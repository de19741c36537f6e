package vector

import "context"

// Distance is the similarity metric used by a collection.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceEuclidean Distance = "euclidean"
	DistanceDot       Distance = "dot"
)

// Filter is a set of exact-match payload conditions, ANDed together.
type Filter map[string]string

// Point is a stored vector record.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	ID      uint64
	Score   float32
	Payload map[string]any
}

// Backend abstracts the vector store product. Implementations must be
// thread-safe and support concurrent access.
//
// Filter-based deletes are known to be unreliable on some backends; the
// Gateway layers a multi-tier fallback over DeleteByFilter, Scroll, and
// DeleteByIDs, so implementations should report filter-delete failures
// honestly rather than masking them.
type Backend interface {
	// HealthCheck verifies connectivity to the backing store.
	HealthCheck(ctx context.Context) error

	// EnsureCollection creates the collection if it does not exist.
	// Returns existed=true, without modification, when a collection of that
	// name already exists.
	EnsureCollection(ctx context.Context, name string, dimension int, distance Distance) (existed bool, err error)

	// Upsert writes points into the collection, replacing points with the
	// same ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to limit points ordered by similarity to the query
	// vector, restricted by the filter, keeping only scores >= scoreThreshold.
	Search(ctx context.Context, collection string, queryVector []float32, filter Filter, limit int, scoreThreshold float32) ([]ScoredPoint, error)

	// Scroll lists up to limit points matching the filter, ordered by ID,
	// starting at IDs >= offset. Payload is included, vectors are not.
	Scroll(ctx context.Context, collection string, filter Filter, limit int, offset uint64) ([]Point, error)

	// Count returns the number of points matching the filter.
	Count(ctx context.Context, collection string, filter Filter) (int, error)

	// DeleteByFilter removes all points matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter Filter) error

	// DeleteByIDs removes points by explicit ID list.
	DeleteByIDs(ctx context.Context, collection string, ids []uint64) error
}
