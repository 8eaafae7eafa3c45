package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/askdrive/internal/checksum"
	"github.com/custodia-labs/askdrive/internal/chunker"
	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
	"github.com/custodia-labs/askdrive/internal/core/ports/driving"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusSyncer = (*CorpusService)(nil)

// DefaultSyncWorkers is the default ingestion fan-out width.
const DefaultSyncWorkers = 4

// DefaultEmbedBatchSize is how many chunk texts are embedded per
// upstream call.
const DefaultEmbedBatchSize = 32

// errNoContent marks a document whose loader produced no text.
var errNoContent = fmt.Errorf("%w: no text content", domain.ErrParse)

// syncOutcome classifies one document's fate during a sync run.
type syncOutcome int

const (
	outcomeSkipped syncOutcome = iota
	outcomeAdded
	outcomeUpdated
	outcomeFailed
)

// CorpusService reconciles the vector index with a file provider.
// Each document runs the load → chunk → embed → insert pipeline
// atomically: on any stage failure its partial entries are rolled
// back, so one document's failure never corrupts another's state.
type CorpusService struct {
	provider driven.FileProvider
	registry driven.LoaderRegistry
	splitter *chunker.Splitter
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	state    *domain.CorpusState

	retry     RetryPolicy
	workers   int
	batchSize int

	// mu guards the report during concurrent ingestion.
	mu sync.Mutex
}

// NewCorpusService creates a corpus service with an empty state.
func NewCorpusService(
	provider driven.FileProvider,
	registry driven.LoaderRegistry,
	splitter *chunker.Splitter,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
) *CorpusService {
	return &CorpusService{
		provider:  provider,
		registry:  registry,
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		state:     domain.NewCorpusState(),
		retry:     DefaultRetryPolicy(),
		workers:   DefaultSyncWorkers,
		batchSize: DefaultEmbedBatchSize,
	}
}

// SetRetryPolicy overrides the default transient-failure retry policy.
func (s *CorpusService) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// SetWorkers sets the ingestion fan-out width.
func (s *CorpusService) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// SetEmbedBatchSize sets how many chunk texts are embedded per call.
func (s *CorpusService) SetEmbedBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// SetState replaces the corpus state, e.g. with one restored from
// persistence.
func (s *CorpusService) SetState(state *domain.CorpusState) {
	if state != nil {
		s.state = state
	}
}

// State exposes the tracked per-document ingestion state.
func (s *CorpusService) State() *domain.CorpusState {
	return s.state
}

// Sync lists the provider's documents and ingests every new or
// changed one. Unchanged documents are skipped, making a repeated
// sync over an unchanged file set a no-op. Documents are processed
// concurrently; per-document failures are recorded in the report and
// never abort the run.
func (s *CorpusService) Sync(ctx context.Context) (*domain.IngestionReport, error) {
	logger.Section("Corpus Sync")

	files, err := s.provider.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	logger.Info("Provider listed %d documents", len(files))

	report := &domain.IngestionReport{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, file := range files {
		g.Go(func() error {
			outcome, procErr := s.processDocument(gctx, file)

			s.mu.Lock()
			defer s.mu.Unlock()
			switch outcome {
			case outcomeAdded:
				report.Added++
			case outcomeUpdated:
				report.Updated++
			case outcomeSkipped:
				report.Skipped++
			case outcomeFailed:
				report.Failed++
				report.Failures = append(report.Failures, domain.IngestionFailure{
					DocumentID: file.ID,
					Name:       file.Name,
					Reason:     procErr.Error(),
				})
			}
			// Failures are isolated; only cancellation stops the run.
			if procErr != nil && (errors.Is(procErr, context.Canceled) || errors.Is(procErr, context.DeadlineExceeded)) {
				return procErr
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	logger.Info("Sync complete: %d added, %d updated, %d skipped, %d failed",
		report.Added, report.Updated, report.Skipped, report.Failed)
	return report, nil
}

// processDocument ingests one document end to end.
func (s *CorpusService) processDocument(ctx context.Context, file driven.FileInfo) (syncOutcome, error) {
	if file.Format == "" || !s.registry.Supports(file.Format) {
		err := fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, file.Name)
		s.state.Set(file.ID, domain.DocumentState{
			Hash:   file.Hash,
			Status: domain.StatusFailed,
			Reason: err.Error(),
		})
		return outcomeFailed, err
	}

	prior, tracked := s.state.Get(file.ID)

	// Cheap skip: the provider reported a hash and it is unchanged.
	if tracked && prior.Status == domain.StatusIndexed && file.Hash != "" && file.Hash == prior.Hash {
		logger.Debug("Skipping %s: unchanged", file.Name)
		return outcomeSkipped, nil
	}

	content, err := s.provider.Fetch(ctx, file.ID)
	if err != nil {
		err = fmt.Errorf("fetch: %w", err)
		s.state.Set(file.ID, domain.DocumentState{
			Hash:   file.Hash,
			Status: domain.StatusFailed,
			Reason: err.Error(),
		})
		return outcomeFailed, err
	}

	hash := file.Hash
	if hash == "" {
		hash = checksum.Sum(content)
	}
	if tracked && prior.Status == domain.StatusIndexed && hash == prior.Hash {
		logger.Debug("Skipping %s: unchanged", file.Name)
		return outcomeSkipped, nil
	}

	logger.Debug("Ingesting %s (%d bytes)", file.Name, len(content))
	s.state.Set(file.ID, domain.DocumentState{Hash: hash, Status: domain.StatusPending})

	if err := s.ingest(ctx, file, content); err != nil {
		// Roll back partial inserts so the index never holds a
		// half-ingested document.
		if rbErr := s.index.RemoveByDocument(ctx, file.ID); rbErr != nil {
			logger.Warn("Rollback of %s failed: %v", file.ID, rbErr)
		}
		s.state.Set(file.ID, domain.DocumentState{
			Hash:   hash,
			Status: domain.StatusFailed,
			Reason: err.Error(),
		})
		return outcomeFailed, err
	}

	s.state.Set(file.ID, domain.DocumentState{Hash: hash, Status: domain.StatusIndexed})
	if tracked && prior.Status == domain.StatusIndexed {
		return outcomeUpdated, nil
	}
	return outcomeAdded, nil
}

// ingest runs the pipeline for one document: load, chunk, embed in
// batches, insert. Existing entries are removed first so the index
// holds exactly one generation of the document.
func (s *CorpusService) ingest(ctx context.Context, file driven.FileInfo, content []byte) error {
	sections, err := s.registry.Load(ctx, file.Format, content)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	chunks := s.splitter.SplitDocument(file.ID, sections)
	if len(chunks) == 0 {
		return errNoContent
	}
	logger.Debug("%s: %d chunks", file.Name, len(chunks))

	if err := s.index.RemoveByDocument(ctx, file.ID); err != nil {
		return fmt.Errorf("remove stale entries: %w", err)
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		var vectors [][]float32
		err := s.retry.Do(ctx, "embed chunks", func(ctx context.Context) error {
			var embedErr error
			vectors, embedErr = s.embedder.EmbedBatch(ctx, texts)
			return embedErr
		})
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: %d vectors for %d chunks",
				domain.ErrEmbeddingService, len(vectors), len(batch))
		}

		for i, c := range batch {
			entry := domain.IndexEntry{
				DocumentID:   file.ID,
				DocumentName: file.Name,
				Chunk:        c,
				Vector:       vectors[i],
			}
			if err := s.index.Insert(ctx, entry); err != nil {
				return fmt.Errorf("index chunk %d: %w", c.Ordinal, err)
			}
		}
	}

	return nil
}
