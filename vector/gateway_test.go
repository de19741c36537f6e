package vector_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chatforge/vector"
	"github.com/poiesic/chatforge/vector/mock"
)

const testDimension = 4

func newTestGateway(t *testing.T, backend *mock.Backend) *vector.Gateway {
	g, err := vector.NewGateway(backend, testDimension, vector.WithCollection("test_chunks"))
	require.NoError(t, err)
	return g
}

func embedding(seed float32) []float32 {
	return []float32{seed, seed + 1, seed + 2, seed + 3}
}

func records(docID string, n int) []vector.Record {
	out := make([]vector.Record, n)
	for i := range out {
		out[i] = vector.Record{
			ID:        docID + "_chunk_" + string(rune('a'+i)),
			Embedding: embedding(float32(i)),
			Payload:   map[string]any{"document_id": docID, "text": "chunk"},
		}
	}
	return out
}

func TestNamespaceForDeterministic(t *testing.T) {
	a := vector.NamespaceFor("Tenant-1", "Bot A")
	b := vector.NamespaceFor("Tenant-1", "Bot A")
	c := vector.NamespaceFor("Tenant-1", "Bot B")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestUpsertRequiresNamespace(t *testing.T) {
	g := newTestGateway(t, mock.NewBackend())
	err := g.Upsert(context.Background(), "", records("doc1", 1))
	assert.ErrorIs(t, err, vector.ErrEmptyNamespace)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	g := newTestGateway(t, mock.NewBackend())
	err := g.Upsert(context.Background(), "ns_a", []vector.Record{
		{ID: "bad", Embedding: []float32{1, 2}},
	})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
}

func TestSearchIsolatedByNamespace(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	g := newTestGateway(t, backend)

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 3)))
	require.NoError(t, g.Upsert(ctx, "ns_b", records("doc2", 2)))

	hits, err := g.Search(ctx, "ns_a", embedding(0), 10, 0, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, hit := range hits {
		assert.Equal(t, "ns_a", hit.Payload["namespace"])
	}
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, mock.NewBackend())

	existed, err := g.EnsureCollection(ctx)
	require.NoError(t, err)
	assert.True(t, existed) // ensureReady already created it

	existed, err = g.EnsureCollection(ctx)
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestInitializesOnceUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	var healthChecks atomic.Int32
	backend.HealthCheckFunc = func(context.Context) error {
		healthChecks.Add(1)
		return nil
	}
	g := newTestGateway(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = g.Upsert(ctx, "ns_a", records("doc", 1))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), healthChecks.Load())
}

func TestDeleteByFilterTier(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	g := newTestGateway(t, backend)

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 3)))
	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc2", 2)))

	removed, err := g.DeleteDocumentVectors(ctx, "ns_a", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, backend.PointCount("test_chunks"))
}

func TestDeleteFallsBackToScroll(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	backend.DeleteByFilterFunc = func(context.Context, string, vector.Filter) error {
		return errors.New("filter deletes unsupported")
	}
	g := newTestGateway(t, backend)

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 3)))
	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc2", 2)))

	removed, err := g.DeleteDocumentVectors(ctx, "ns_a", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, backend.PointCount("test_chunks"))
}

func TestDeleteFallsBackToFullScan(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	backend.CountFunc = func(context.Context, string, vector.Filter) (int, error) {
		return 0, errors.New("count unsupported")
	}

	// Reject scrolls carrying the document filter so only the
	// namespace-wide scan with client-side matching can succeed.
	var failFiltered func(context.Context, string, vector.Filter, int, uint64) ([]vector.Point, error)
	failFiltered = func(ctx context.Context, name string, filter vector.Filter, limit int, offset uint64) ([]vector.Point, error) {
		if _, ok := filter["document_id"]; ok {
			return nil, errors.New("unsupported filter predicate")
		}
		backend.ScrollFunc = nil
		defer func() { backend.ScrollFunc = failFiltered }()
		return backend.Scroll(ctx, name, filter, limit, offset)
	}
	backend.ScrollFunc = failFiltered

	g := newTestGateway(t, backend)

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 3)))
	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc2", 2)))

	removed, err := g.DeleteDocumentVectors(ctx, "ns_a", "doc1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, backend.PointCount("test_chunks"))
}

func TestDeleteNoMatches(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, mock.NewBackend())

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 2)))

	removed, err := g.DeleteDocumentVectors(ctx, "ns_a", "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestUpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	backend := mock.NewBackend()
	g := newTestGateway(t, backend)

	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 2)))
	require.NoError(t, g.Upsert(ctx, "ns_a", records("doc1", 2)))

	assert.Equal(t, 2, backend.PointCount("test_chunks"))
}
