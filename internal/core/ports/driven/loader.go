package driven

import (
	"context"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// Loader extracts text from raw document bytes of one format.
// Loaders have no side effects beyond reading the provided bytes.
type Loader interface {
	// Format returns the format tag this loader handles.
	Format() domain.Format

	// Load parses raw bytes into ordered text sections. Malformed
	// content fails with domain.ErrParse.
	Load(ctx context.Context, content []byte) ([]domain.Section, error)
}

// LoaderRegistry dispatches a document to the loader registered for
// its format tag. Unknown formats fail fast with
// domain.ErrUnsupportedFormat.
type LoaderRegistry interface {
	// Load extracts the sections of a document.
	Load(ctx context.Context, format domain.Format, content []byte) ([]domain.Section, error)

	// Supports reports whether a loader is registered for a format.
	Supports(format domain.Format) bool
}
