package driven

import (
	"context"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// VectorIndex stores (embedding, chunk, document metadata) entries
// and answers exact top-k similarity queries over them.
//
// Implementations must be internally synchronized: inserts and
// removals may race with queries, but a query always observes a
// consistent snapshot, never a torn insert.
type VectorIndex interface {
	// Insert appends an entry. The index dimension is established
	// by the first insert; later entries with a different vector
	// dimension fail with domain.ErrDimensionMismatch.
	Insert(ctx context.Context, entry domain.IndexEntry) error

	// Query returns the k entries most similar to the vector by
	// cosine similarity, highest first. Ties break by insertion
	// order (earlier wins). Fewer than k entries are returned when
	// the index is smaller than k.
	Query(ctx context.Context, vector []float32, k int) ([]domain.RetrievedChunk, error)

	// RemoveByDocument removes all entries owned by a document.
	// Used before re-ingestion and for rollback.
	RemoveByDocument(ctx context.Context, documentID string) error

	// Len returns the number of stored entries.
	Len() int

	// DocumentCount returns the number of distinct documents with
	// at least one entry.
	DocumentCount() int

	// Close releases resources.
	Close() error
}
