package driving

import (
	"context"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// CorpusSyncer reconciles the vector index with a file provider.
type CorpusSyncer interface {
	// Sync ingests new and changed documents and reports what
	// happened. Unchanged documents are skipped; per-document
	// failures are isolated and reported, never fatal to the run.
	Sync(ctx context.Context) (*domain.IngestionReport, error)

	// State exposes the tracked per-document ingestion state.
	State() *domain.CorpusState
}
