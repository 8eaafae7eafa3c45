package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration value violates an
	// invariant (e.g. chunk overlap >= chunk size).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedFormat indicates no loader is registered for a
	// document's format tag.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrParse indicates a document's content is malformed and could
	// not be converted to text.
	ErrParse = errors.New("document parse failed")

	// ErrDimensionMismatch indicates a vector's dimension differs
	// from the index's established dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingService indicates the embedding service failed
	// (transport, auth, or malformed response).
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrRateLimited indicates an upstream service signalled
	// throttling. Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates an upstream call exceeded its deadline.
	// Retryable.
	ErrTimeout = errors.New("timeout")

	// ErrGeneration indicates the generation service failed. The
	// failure is surfaced to the caller, never replaced with a
	// fabricated answer.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyCorpus indicates a question was asked before any
	// document was indexed.
	ErrEmptyCorpus = errors.New("no documents indexed")
)

// IsRetryable reports whether an error is a transient upstream
// failure worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// Stage identifies a phase of the answer pipeline.
type Stage string

const (
	// StageEmbedding is the question embedding phase.
	StageEmbedding Stage = "embedding"

	// StageRetrieving is the top-k index query phase.
	StageRetrieving Stage = "retrieving"

	// StageGenerating is the grounded generation phase.
	StageGenerating Stage = "generating"
)

// StageError records which pipeline stage an answer failed at.
// An answer call never revisits a stage; the first failure is final.
type StageError struct {
	// Stage is the phase that failed.
	Stage Stage

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the stage it occurred in.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
