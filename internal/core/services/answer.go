package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
	"github.com/custodia-labs/askdrive/internal/core/ports/driving"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// answerMaxTokens bounds the generated answer length.
const answerMaxTokens = 1024

// AnswerService answers questions over the indexed corpus:
// embed the question, retrieve the top-k most similar chunks, then
// generate an answer grounded in them with source attribution.
//
// Answering is read-only; a cancelled call leaves no partial state.
type AnswerService struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	llm      driven.LLMService
	retry    RetryPolicy
}

// NewAnswerService creates an answer service.
func NewAnswerService(
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
) *AnswerService {
	return &AnswerService{
		index:    index,
		embedder: embedder,
		llm:      llm,
		retry:    DefaultRetryPolicy(),
	}
}

// SetRetryPolicy overrides the default transient-failure retry policy.
func (s *AnswerService) SetRetryPolicy(p RetryPolicy) {
	s.retry = p
}

// Answer runs the question pipeline. The stages run once each, in
// order; the first failure wraps a StageError naming its origin.
// An empty index fails with domain.ErrEmptyCorpus before any
// generation call is made.
func (s *AnswerService) Answer(ctx context.Context, question string, k int) (*domain.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = DefaultTopK
	}

	logger.Section("Answer")
	logger.Debug("Question: %q, k=%d", question, k)

	if s.index.DocumentCount() == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	// Stage: embedding
	var queryVector []float32
	err := s.retry.Do(ctx, "embed question", func(ctx context.Context) error {
		var embedErr error
		queryVector, embedErr = s.embedder.Embed(ctx, question)
		return embedErr
	})
	if err != nil {
		return nil, domain.NewStageError(domain.StageEmbedding, err)
	}

	// Stage: retrieving
	retrieved, err := s.index.Query(ctx, queryVector, k)
	if err != nil {
		return nil, domain.NewStageError(domain.StageRetrieving, err)
	}
	if len(retrieved) == 0 {
		return nil, domain.NewStageError(domain.StageRetrieving, domain.ErrEmptyCorpus)
	}
	logger.Debug("Retrieved %d chunks", len(retrieved))

	// Stage: generating
	prompt := buildPrompt(question, retrieved)
	var answer string
	err = s.retry.Do(ctx, "generate answer", func(ctx context.Context) error {
		var genErr error
		answer, genErr = s.llm.Generate(ctx, prompt, driven.GenerateOptions{
			MaxTokens:   answerMaxTokens,
			Temperature: 0,
		})
		return genErr
	})
	if err != nil {
		// The failure is surfaced as a failed turn, never replaced
		// with a fabricated or empty answer.
		// Both identities stay in the chain so callers can tell an
		// exhausted transient failure from a fatal one.
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		return nil, domain.NewStageError(domain.StageGenerating, err)
	}

	return &domain.AnswerResult{
		Text:      strings.TrimSpace(answer),
		Sources:   distinctSources(retrieved),
		Retrieved: retrieved,
	}, nil
}

// buildPrompt constructs the grounded prompt: the retrieved chunks
// labelled with their source document names, then the question.
func buildPrompt(question string, retrieved []domain.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the context below. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")
	b.WriteString("Context:\n")

	for _, rc := range retrieved {
		label := rc.Entry.DocumentName
		if marker := rc.Entry.Chunk.Marker; marker != "" {
			label += ", " + marker
		}
		fmt.Fprintf(&b, "\n[%s]\n%s\n", label, rc.Entry.Chunk.Text)
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

// distinctSources returns the distinct documents backing the
// retrieved chunks, preserving retrieval order.
func distinctSources(retrieved []domain.RetrievedChunk) []domain.SourceRef {
	seen := make(map[string]struct{}, len(retrieved))
	sources := make([]domain.SourceRef, 0, len(retrieved))
	for _, rc := range retrieved {
		if _, ok := seen[rc.Entry.DocumentID]; ok {
			continue
		}
		seen[rc.Entry.DocumentID] = struct{}{}
		sources = append(sources, domain.SourceRef{
			DocumentID: rc.Entry.DocumentID,
			Name:       rc.Entry.DocumentName,
		})
	}
	return sources
}
