package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew_RejectsMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestList_FindsSupportedDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain notes")
	writeFile(t, dir, "sub/report.pdf", "%PDF-fake")
	writeFile(t, dir, "image.png", "not a document")
	writeFile(t, dir, ".hidden.txt", "skipped")
	writeFile(t, dir, ".git/config.txt", "skipped")

	p, err := New(dir)
	require.NoError(t, err)

	infos, err := p.List(context.Background())
	require.NoError(t, err)

	require.Len(t, infos, 2)

	byID := make(map[string]domain.Format)
	for _, info := range infos {
		byID[info.ID] = info.Format
		assert.NotEmpty(t, info.Hash)
	}
	assert.Equal(t, domain.FormatTXT, byID["notes.txt"])
	assert.Equal(t, domain.FormatPDF, byID["sub/report.pdf"])
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "plain notes")

	p, err := New(dir)
	require.NoError(t, err)

	data, err := p.Fetch(context.Background(), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("plain notes"), data)
}

func TestFetch_NotFound(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), "missing.txt")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetch_RejectsPathEscape(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = p.Fetch(context.Background(), "../outside.txt")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	id, err := p.Upload(context.Background(), "new.txt", []byte("uploaded"))
	require.NoError(t, err)
	assert.Equal(t, "new.txt", id)

	data, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("uploaded"), data)
}

func TestWatch_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := p.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "notes.txt", "first version")

	select {
	case _, ok := <-events:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestWatch_CoalescesBurstIntoOneNotification(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := p.Watch(ctx)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeFile(t, dir, "notes.txt", strings.Repeat("v", i+1))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case _, ok := <-events:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}

	select {
	case <-events:
		t.Fatal("burst of writes produced a second notification")
	case <-time.After(2 * debounceWindow):
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	p, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := p.Watch(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "channel should close after cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{".hidden", true},
		{".git", true},
		{"visible.txt", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isHidden(tt.name), tt.name)
	}
}
