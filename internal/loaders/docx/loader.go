// Package docx provides a loader for Word (OOXML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader handles DOCX documents. A DOCX file is a ZIP archive whose
// main text lives in word/document.xml.
type Loader struct{}

// New creates a new DOCX loader.
func New() *Loader {
	return &Loader{}
}

// Format returns the format tag this loader handles.
func (l *Loader) Format() domain.Format {
	return domain.FormatDOCX
}

// Load extracts paragraph text from the document archive. Malformed
// archives or XML fail with domain.ErrParse.
func (l *Loader) Load(_ context.Context, content []byte) ([]domain.Section, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a DOCX archive: %v", domain.ErrParse, err)
	}

	text, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	return []domain.Section{{Text: text}}, nil
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// extractDocumentText extracts text from word/document.xml.
func extractDocumentText(reader *zip.Reader) (string, error) {
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", domain.ErrParse, err)
		}

		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", domain.ErrParse, err)
		}

		return parseDocumentXML(raw)
	}
	return "", fmt.Errorf("%w: archive has no word/document.xml", domain.ErrParse)
}

// parseDocumentXML joins the text runs of every paragraph.
func parseDocumentXML(raw []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				result.WriteString(text.Content)
			}
		}
	}
	return strings.TrimSpace(result.String()), nil
}
