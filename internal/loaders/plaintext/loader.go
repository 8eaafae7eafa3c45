// Package plaintext provides a loader for plain text documents.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// utf8BOM is the UTF-8 byte order mark some editors prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader handles plain text documents.
type Loader struct{}

// New creates a new plain text loader.
func New() *Loader {
	return &Loader{}
}

// Format returns the format tag this loader handles.
func (l *Loader) Format() domain.Format {
	return domain.FormatTXT
}

// Load decodes content as UTF-8 text. Plain text has no internal
// structure, so the result is a single unmarked section.
func (l *Loader) Load(_ context.Context, content []byte) ([]domain.Section, error) {
	content = bytes.TrimPrefix(content, utf8BOM)

	if !utf8.Valid(content) {
		return nil, domain.ErrParse
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	return []domain.Section{{Text: text}}, nil
}
