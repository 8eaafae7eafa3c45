// Package memory provides an in-memory vector index using exact
// brute-force cosine similarity. At corpus scale a linear scan is the
// simplest correct implementation; top-k ranking is exact.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry pairs an index entry with its insertion sequence number.
// The sequence breaks score ties (earlier wins) and stays stable
// across removals.
type entry struct {
	domain.IndexEntry
	seq uint64
}

// Index is an exact in-memory vector index. Vectors are normalized
// at insert so cosine similarity reduces to a dot product. A single
// RWMutex serializes writes; queries run under the read lock and
// therefore observe a consistent snapshot, never a torn insert.
type Index struct {
	mu        sync.RWMutex
	dimension int
	nextSeq   uint64
	entries   []entry
}

// New creates an empty index. The dimension is established by the
// first insert.
func New() *Index {
	return &Index{}
}

// NewWithDimension creates an empty index with a fixed dimension.
func NewWithDimension(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Insert appends an entry. Fails with domain.ErrDimensionMismatch if
// the vector dimension differs from the index's established one.
func (x *Index) Insert(_ context.Context, e domain.IndexEntry) error {
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = len(e.Vector)
	} else if len(e.Vector) != x.dimension {
		return fmt.Errorf("%w: got %d, index has %d",
			domain.ErrDimensionMismatch, len(e.Vector), x.dimension)
	}

	e.Vector = normalize(e.Vector)
	x.entries = append(x.entries, entry{IndexEntry: e, seq: x.nextSeq})
	x.nextSeq++
	return nil
}

// Query returns the k entries with the highest cosine similarity to
// the vector, ties broken by insertion order (earlier wins),
// truncated to the index size.
func (x *Index) Query(_ context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrInvalidInput)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dimension != 0 && len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: query vector has %d, index has %d",
			domain.ErrDimensionMismatch, len(vector), x.dimension)
	}

	q := normalize(vector)

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(x.entries))
	for i := range x.entries {
		scores[i] = scored{idx: i, score: dot(x.entries[i].Vector, q)}
	}

	sort.Slice(scores, func(a, b int) bool {
		if scores[a].score != scores[b].score {
			return scores[a].score > scores[b].score
		}
		return x.entries[scores[a].idx].seq < x.entries[scores[b].idx].seq
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.RetrievedChunk, 0, k)
	for _, s := range scores[:k] {
		results = append(results, domain.RetrievedChunk{
			Entry: x.entries[s.idx].IndexEntry,
			Score: s.score,
		})
	}
	return results, nil
}

// RemoveByDocument removes all entries owned by the document.
func (x *Index) RemoveByDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.entries[:0]
	for _, e := range x.entries {
		if e.DocumentID != documentID {
			kept = append(kept, e)
		}
	}
	// Zero the tail so removed entries can be collected.
	for i := len(kept); i < len(x.entries); i++ {
		x.entries[i] = entry{}
	}
	x.entries = kept
	return nil
}

// Len returns the number of stored entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// DocumentCount returns the number of distinct documents with at
// least one entry.
func (x *Index) DocumentCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[string]struct{}, len(x.entries))
	for _, e := range x.entries {
		seen[e.DocumentID] = struct{}{}
	}
	return len(seen)
}

// Dimension returns the established vector dimension, 0 if empty.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// Entries returns a copy of all stored entries in insertion order.
// Used by the persistence layer to snapshot the index.
func (x *Index) Entries() []domain.IndexEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]domain.IndexEntry, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.IndexEntry
	}
	return out
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}

// normalize returns a unit-length copy of v. A zero vector is
// returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
