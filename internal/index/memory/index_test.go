package memory

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

func newEntry(docID string, ordinal int, vector []float32) domain.IndexEntry {
	return domain.IndexEntry{
		DocumentID:   docID,
		DocumentName: docID + ".txt",
		Chunk: domain.Chunk{
			DocumentID: docID,
			Ordinal:    ordinal,
			Text:       fmt.Sprintf("%s chunk %d", docID, ordinal),
		},
		Vector: vector,
	}
}

func TestInsert_EstablishesDimension(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0, 0})))
	assert.Equal(t, 3, idx.Dimension())

	err := idx.Insert(ctx, newEntry("a", 1, []float32{1, 0}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.Len())
}

func TestInsert_EmptyVector(t *testing.T) {
	idx := New()
	err := idx.Insert(context.Background(), newEntry("a", 0, nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_TopKOrdering(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("b", 0, []float32{0, 1})))
	require.NoError(t, idx.Insert(ctx, newEntry("c", 0, []float32{1, 1})))

	hits, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a", hits[0].Entry.DocumentID)
	assert.Equal(t, "c", hits[1].Entry.DocumentID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestQuery_TiesBreakByInsertionOrder(t *testing.T) {
	idx := New()
	ctx := context.Background()

	// Identical vectors score identically; earlier insert wins.
	require.NoError(t, idx.Insert(ctx, newEntry("first", 0, []float32{1, 1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("second", 0, []float32{1, 1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("third", 0, []float32{2, 2, 0})))

	hits, err := idx.Query(ctx, []float32{1, 1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "first", hits[0].Entry.DocumentID)
	assert.Equal(t, "second", hits[1].Entry.DocumentID)
	assert.Equal(t, "third", hits[2].Entry.DocumentID)
}

func TestQuery_TruncatesToIndexSize(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0})))

	hits, err := idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestQuery_InvalidK(t *testing.T) {
	idx := New()
	_, err := idx.Query(context.Background(), []float32{1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0, 0})))

	_, err := idx.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

// TestQuery_MatchesBruteForce checks exact top-k equivalence against
// an independent cosine ranking over random vectors.
func TestQuery_MatchesBruteForce(t *testing.T) {
	const (
		dim   = 8
		n     = 200
		k     = 10
		seed  = 42
		tries = 5
	)

	rng := rand.New(rand.NewSource(seed))
	idx := New()
	ctx := context.Background()

	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vectors[i] = v
		require.NoError(t, idx.Insert(ctx, newEntry(fmt.Sprintf("doc-%d", i), 0, v)))
	}

	for try := 0; try < tries; try++ {
		q := make([]float32, dim)
		for j := range q {
			q[j] = float32(rng.NormFloat64())
		}

		hits, err := idx.Query(ctx, q, k)
		require.NoError(t, err)
		require.Len(t, hits, k)

		// Independent brute-force cosine ranking.
		type ranked struct {
			id    string
			score float64
		}
		expected := make([]ranked, n)
		for i, v := range vectors {
			expected[i] = ranked{
				id:    fmt.Sprintf("doc-%d", i),
				score: cosine(v, q),
			}
		}
		sort.SliceStable(expected, func(a, b int) bool {
			return expected[a].score > expected[b].score
		})

		for i, hit := range hits {
			assert.Equal(t, expected[i].id, hit.Entry.DocumentID)
			assert.InDelta(t, expected[i].score, hit.Score, 1e-5)
		}
	}
}

func TestRemoveByDocument(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("keep", 0, []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("drop", 0, []float32{0, 1})))
	require.NoError(t, idx.Insert(ctx, newEntry("drop", 1, []float32{1, 1})))
	require.NoError(t, idx.Insert(ctx, newEntry("keep", 1, []float32{1, 2})))

	require.NoError(t, idx.RemoveByDocument(ctx, "drop"))

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, idx.DocumentCount())

	hits, err := idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.Equal(t, "keep", hit.Entry.DocumentID)
	}
}

func TestRemoveByDocument_PreservesTieOrder(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("b", 0, []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("c", 0, []float32{1, 0})))

	require.NoError(t, idx.RemoveByDocument(ctx, "a"))

	hits, err := idx.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	// b was inserted before c and still ranks first on a tie.
	assert.Equal(t, "b", hits[0].Entry.DocumentID)
	assert.Equal(t, "c", hits[1].Entry.DocumentID)
}

func TestDocumentCount(t *testing.T) {
	idx := New()
	ctx := context.Background()

	assert.Equal(t, 0, idx.DocumentCount())

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, newEntry("a", 1, []float32{0, 1})))
	require.NoError(t, idx.Insert(ctx, newEntry("b", 0, []float32{1, 1})))

	assert.Equal(t, 2, idx.DocumentCount())
	assert.Equal(t, 3, idx.Len())
}

func TestEntries_Snapshot(t *testing.T) {
	idx := New()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, newEntry("a", 0, []float32{3, 4})))

	entries := idx.Entries()
	require.Len(t, entries, 1)
	// Stored vectors are normalized.
	assert.InDelta(t, 0.6, float64(entries[0].Vector[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(entries[0].Vector[1]), 1e-6)
}

// TestConcurrentInsertAndQuery exercises the snapshot guarantee:
// queries racing with inserts and removals must never observe torn
// state (the race detector backs this up).
func TestConcurrentInsertAndQuery(t *testing.T) {
	idx := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				docID := fmt.Sprintf("doc-%d", w)
				_ = idx.Insert(ctx, newEntry(docID, i, []float32{float32(i), float32(w), 1}))
				if i%10 == 9 {
					_ = idx.RemoveByDocument(ctx, docID)
				}
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			hits, err := idx.Query(ctx, []float32{1, 1, 1}, 5)
			if err != nil {
				continue
			}
			for _, h := range hits {
				if h.Entry.DocumentID == "" {
					t.Error("observed torn entry")
				}
			}
		}
	}()

	wg.Wait()
}

func cosine(a, b []float32) float64 {
	var dotAB, normA, normB float64
	for i := range a {
		dotAB += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotAB / (math.Sqrt(normA) * math.Sqrt(normB))
}
