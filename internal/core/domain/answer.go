package domain

import "time"

// SourceRef identifies a document that backed an answer.
type SourceRef struct {
	// DocumentID is the provider's stable identifier.
	DocumentID string

	// Name is the document's display name.
	Name string
}

// RetrievedChunk is a chunk returned by the index for a question,
// with its similarity score.
type RetrievedChunk struct {
	// Entry is the matched index entry.
	Entry IndexEntry

	// Score is the cosine similarity to the question.
	Score float64
}

// AnswerResult is the outcome of one successful answer call.
type AnswerResult struct {
	// Text is the generated answer.
	Text string

	// Sources are the distinct documents backing the retrieved
	// chunks, in retrieval order.
	Sources []SourceRef

	// Retrieved are the chunks the answer was grounded on, ranked
	// by similarity.
	Retrieved []RetrievedChunk
}

// ChatTurn is one question/answer exchange in a session.
// Turns are append-only and owned by the UI layer; the answer core
// is stateless across turns.
type ChatTurn struct {
	// Question is the user's question text.
	Question string

	// Answer is the generated answer text. Empty when Err is set.
	Answer string

	// Sources are the cited documents.
	Sources []SourceRef

	// Err records a failed turn. A failed turn is shown as failed,
	// never as an empty answer.
	Err string

	// AskedAt is when the question was asked.
	AskedAt time.Time
}
