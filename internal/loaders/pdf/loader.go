// Package pdf provides a loader for PDF documents. Text extraction
// shells out to pdftotext (poppler) behind a mockable runner.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can substitute a fake pdftotext.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Loader handles PDF documents.
type Loader struct {
	runner CommandRunner
}

// New creates a new PDF loader using the system pdftotext.
func New() *Loader {
	return &Loader{runner: execRunner{}}
}

// NewWithRunner creates a PDF loader with a custom command runner.
func NewWithRunner(runner CommandRunner) *Loader {
	return &Loader{runner: runner}
}

// Format returns the format tag this loader handles.
func (l *Loader) Format() domain.Format {
	return domain.FormatPDF
}

// Load extracts text by running pdftotext over a temporary copy of
// the content. pdftotext separates pages with form feeds, which
// become per-page section markers. A corrupt PDF fails with
// domain.ErrParse.
func (l *Loader) Load(ctx context.Context, content []byte) ([]domain.Section, error) {
	tmp, err := os.CreateTemp("", "askdrive-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// "-" sends the extracted text to stdout.
	out, err := l.runner.Run(ctx, "pdftotext", "-layout", tmp.Name(), "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: pdftotext: %v", domain.ErrParse, err)
	}

	return splitPages(string(out)), nil
}

// splitPages converts pdftotext output into per-page sections.
// pdftotext emits a form feed after every page.
func splitPages(text string) []domain.Section {
	pages := strings.Split(text, "\f")
	sections := make([]domain.Section, 0, len(pages))
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		sections = append(sections, domain.Section{
			Text:   page,
			Marker: fmt.Sprintf("page %d", i+1),
		})
	}
	return sections
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return strings.Join([]string{
		"pdftotext is required for PDF support:",
		"  macOS:  brew install poppler",
		"  Debian: apt install poppler-utils",
		"  Fedora: dnf install poppler-utils",
	}, "\n")
}
