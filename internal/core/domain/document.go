package domain

import (
	"strings"
	"time"
)

// Format identifies the on-disk format of a source document.
// It is the dispatch key for the loader registry.
type Format string

const (
	// FormatPDF is a PDF document.
	FormatPDF Format = "pdf"

	// FormatDOCX is a Word (OOXML) document.
	FormatDOCX Format = "docx"

	// FormatTXT is a plain text document.
	FormatTXT Format = "txt"
)

// FormatFromName derives a Format from a file name extension.
// Returns an empty Format if the extension is not recognised.
func FormatFromName(name string) Format {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	switch strings.ToLower(name[idx+1:]) {
	case "pdf":
		return FormatPDF
	case "docx":
		return FormatDOCX
	case "txt", "text":
		return FormatTXT
	default:
		return ""
	}
}

// Document represents a source file tracked by the corpus.
// It is identified by the provider's stable file ID and is re-ingested
// only when its content hash changes.
type Document struct {
	// ID is the provider's stable identifier (e.g. a Drive file ID).
	ID string

	// Name is the human-readable file name.
	Name string

	// Format is the document format tag used for loader dispatch.
	Format Format

	// Hash is the content hash used for change detection.
	Hash string

	// IngestedAt is when the document was last successfully indexed.
	IngestedAt time.Time
}

// Section is a span of extracted text with an optional page or
// section marker, as produced by a loader.
type Section struct {
	// Text is the extracted text.
	Text string

	// Marker labels the origin of the text (e.g. "page 3").
	// Empty for formats without internal structure.
	Marker string
}

// Chunk is a contiguous span of document text, the unit of embedding
// and retrieval. Chunks are immutable once created; they are destroyed
// only when their owning document is re-ingested or removed.
type Chunk struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Ordinal is the position within the document, starting at 0.
	Ordinal int

	// Text is the chunk content.
	Text string

	// Start is the rune offset of the chunk within the document text.
	Start int

	// End is the rune offset one past the last rune of the chunk.
	End int

	// Marker is the page/section marker active at the chunk start.
	Marker string
}

// IndexEntry is the tuple stored in the vector index: one embedding,
// the chunk it represents and enough document metadata to attribute
// an answer to its source.
type IndexEntry struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// DocumentName is the owning document's display name.
	DocumentName string

	// Chunk is the embedded chunk.
	Chunk Chunk

	// Vector is the embedding. Its dimension must match the index.
	Vector []float32
}
