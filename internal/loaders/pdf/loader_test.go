package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return m.output, m.err
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Loader = (*Loader)(nil)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, domain.FormatPDF, New().Format())
}

func TestLoad_WithMockRunner(t *testing.T) {
	runner := &mockRunner{
		output: []byte("First page text.\f Second page text.\f"),
	}
	loader := NewWithRunner(runner)

	sections, err := loader.Load(context.Background(), []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "First page text.", sections[0].Text)
	assert.Equal(t, "page 1", sections[0].Marker)
	assert.Equal(t, "Second page text.", sections[1].Text)
	assert.Equal(t, "page 2", sections[1].Marker)
}

func TestLoad_ToolFailure(t *testing.T) {
	runner := &mockRunner{err: assert.AnError}
	loader := NewWithRunner(runner)

	_, err := loader.Load(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestLoad_Cancelled(t *testing.T) {
	runner := &mockRunner{err: context.Canceled}
	loader := NewWithRunner(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		texts   []string
		markers []string
	}{
		{
			name:    "single page",
			input:   "only page\f",
			texts:   []string{"only page"},
			markers: []string{"page 1"},
		},
		{
			name:    "skips blank pages but keeps numbering",
			input:   "one\f\fthree\f",
			texts:   []string{"one", "three"},
			markers: []string{"page 1", "page 3"},
		},
		{
			name:  "empty output",
			input: "",
			texts: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sections := splitPages(tc.input)
			require.Len(t, sections, len(tc.texts))
			for i := range sections {
				assert.Equal(t, tc.texts[i], sections[i].Text)
				assert.Equal(t, tc.markers[i], sections[i].Marker)
			}
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}
