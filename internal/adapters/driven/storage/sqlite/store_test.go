package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/index/memory"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func entry(docID, name string, ordinal int, text string, vector ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		DocumentID:   docID,
		DocumentName: name,
		Chunk: domain.Chunk{
			DocumentID: docID,
			Ordinal:    ordinal,
			Text:       text,
			Start:      ordinal * 10,
			End:        ordinal*10 + len(text),
			Marker:     "page 1",
		},
		Vector: vector,
	}
}

func TestIndexRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entries := []domain.IndexEntry{
		entry("doc-a", "Doc-A", 0, "first chunk", 1, 0, 0),
		entry("doc-a", "Doc-A", 1, "second chunk", 0, 1, 0),
		entry("doc-b", "Doc-B", 0, "other doc", 0, 0, 1),
	}
	require.NoError(t, store.SaveIndex(ctx, entries))

	loaded, err := store.LoadIndex(ctx)
	require.NoError(t, err)

	require.Len(t, loaded, 3)
	for i := range entries {
		assert.Equal(t, entries[i].DocumentID, loaded[i].DocumentID)
		assert.Equal(t, entries[i].DocumentName, loaded[i].DocumentName)
		assert.Equal(t, entries[i].Chunk, loaded[i].Chunk)
		assert.Equal(t, entries[i].Vector, loaded[i].Vector)
	}
}

func TestIndexReload_PreservesQueryResults(t *testing.T) {
	ctx := context.Background()

	// Two entries with identical vectors: the earlier insert must win
	// the tie before and after a persistence round trip.
	original := memory.New()
	require.NoError(t, original.Insert(ctx, entry("doc-a", "Doc-A", 0, "tied first", 1, 0)))
	require.NoError(t, original.Insert(ctx, entry("doc-b", "Doc-B", 0, "tied second", 1, 0)))
	require.NoError(t, original.Insert(ctx, entry("doc-c", "Doc-C", 0, "different", 0, 1)))

	store, dir := newTestStore(t)
	require.NoError(t, store.SaveIndex(ctx, original.Entries()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	persisted, err := reopened.LoadIndex(ctx)
	require.NoError(t, err)

	restored := memory.New()
	for _, e := range persisted {
		require.NoError(t, restored.Insert(ctx, e))
	}

	query := []float32{1, 0}
	want, err := original.Query(ctx, query, 3)
	require.NoError(t, err)
	got, err := restored.Query(ctx, query, 3)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Entry.DocumentID, got[i].Entry.DocumentID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-6)
	}
	assert.Equal(t, "doc-a", got[0].Entry.DocumentID, "earlier insert wins the tie after reload")
}

func TestSaveIndex_ReplacesSnapshot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveIndex(ctx, []domain.IndexEntry{
		entry("doc-a", "Doc-A", 0, "old", 1, 0),
	}))
	require.NoError(t, store.SaveIndex(ctx, []domain.IndexEntry{
		entry("doc-b", "Doc-B", 0, "new", 0, 1),
	}))

	loaded, err := store.LoadIndex(ctx)
	require.NoError(t, err)

	require.Len(t, loaded, 1)
	assert.Equal(t, "doc-b", loaded[0].DocumentID)
}

func TestStateRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	state := domain.NewCorpusState()
	state.Set("doc-a", domain.DocumentState{Hash: "h1", Status: domain.StatusIndexed})
	state.Set("doc-b", domain.DocumentState{Hash: "h2", Status: domain.StatusFailed, Reason: "parse failed"})

	require.NoError(t, store.SaveState(ctx, state))

	loaded, err := store.LoadState(ctx)
	require.NoError(t, err)

	require.Equal(t, 2, loaded.Len())

	a, ok := loaded.Get("doc-a")
	require.True(t, ok)
	assert.Equal(t, "h1", a.Hash)
	assert.Equal(t, domain.StatusIndexed, a.Status)

	b, ok := loaded.Get("doc-b")
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, b.Status)
	assert.Equal(t, "parse failed", b.Reason)
}

func TestLoadIndex_EmptyDatabase(t *testing.T) {
	store, _ := newTestStore(t)

	loaded, err := store.LoadIndex(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	_, dir := newTestStore(t)

	again, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{0.1, -0.2, 3.5},
		{},
		{1},
	}
	for _, v := range vectors {
		got := bytesToFloat32Slice(float32SliceToBytes(v))
		if len(v) == 0 {
			assert.Nil(t, got)
			continue
		}
		assert.Equal(t, v, got)
	}
}
