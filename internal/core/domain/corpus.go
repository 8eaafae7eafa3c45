package domain

import (
	"sort"
	"sync"
	"time"
)

// IngestionStatus is the processing state of a tracked document.
type IngestionStatus string

const (
	// StatusPending means ingestion has started but not finished.
	StatusPending IngestionStatus = "pending"

	// StatusIndexed means all chunks of the document are in the index.
	StatusIndexed IngestionStatus = "indexed"

	// StatusFailed means ingestion failed and the document has no
	// entries in the index.
	StatusFailed IngestionStatus = "failed"
)

// DocumentState is the tracked state of one document.
type DocumentState struct {
	// Hash is the content hash at the last ingestion attempt.
	Hash string

	// Status is the outcome of the last ingestion attempt.
	Status IngestionStatus

	// Reason holds the failure cause when Status is StatusFailed.
	Reason string

	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time
}

// CorpusState maps document IDs to their ingestion state.
// It is safe for concurrent use; updates are per-document-ID.
type CorpusState struct {
	mu   sync.RWMutex
	docs map[string]DocumentState
}

// NewCorpusState creates an empty corpus state.
func NewCorpusState() *CorpusState {
	return &CorpusState{docs: make(map[string]DocumentState)}
}

// Get returns the state for a document ID.
func (c *CorpusState) Get(id string) (DocumentState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.docs[id]
	return st, ok
}

// Set records the state for a document ID.
func (c *CorpusState) Set(id string, st DocumentState) {
	st.UpdatedAt = time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = st
}

// Remove forgets a document ID.
func (c *CorpusState) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
}

// IDs returns all tracked document IDs, sorted for stable output.
func (c *CorpusState) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of tracked documents.
func (c *CorpusState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// IngestionFailure describes why one document failed to ingest.
type IngestionFailure struct {
	// DocumentID is the failed document.
	DocumentID string

	// Name is the document's display name.
	Name string

	// Reason is the failure cause.
	Reason string
}

// IngestionReport summarises one sync run.
// Per-document failures are isolated: a failed document never
// prevents other documents from being indexed.
type IngestionReport struct {
	// Added counts documents indexed for the first time.
	Added int

	// Updated counts documents re-indexed after a hash change.
	Updated int

	// Skipped counts documents whose hash was unchanged.
	Skipped int

	// Failed counts documents whose ingestion failed.
	Failed int

	// Failures holds per-document failure reasons.
	Failures []IngestionFailure
}
