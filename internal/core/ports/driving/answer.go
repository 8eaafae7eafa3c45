package driving

import (
	"context"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// Answerer answers natural-language questions over the indexed
// corpus. Calls are independent; the answerer holds no conversation
// state.
type Answerer interface {
	// Answer embeds the question, retrieves the top-k most similar
	// chunks and generates a grounded answer citing its sources.
	// Fails with domain.ErrEmptyCorpus when nothing is indexed and
	// wraps any stage failure in a domain.StageError.
	Answer(ctx context.Context, question string, k int) (*domain.AnswerResult, error)
}
