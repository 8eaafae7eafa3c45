package driven

import (
	"context"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// FileInfo describes one file listed by a provider.
type FileInfo struct {
	// ID is the provider's stable file identifier.
	ID string

	// Name is the file name.
	Name string

	// Format is the document format tag. Empty when the provider
	// could not recognise the file; such files are skipped.
	Format domain.Format

	// Hash is the content hash reported by the provider. When the
	// provider cannot compute one cheaply it may be empty and the
	// corpus manager hashes the fetched bytes instead.
	Hash string
}

// FileProvider lists and fetches raw documents from a storage
// backend. Any backend satisfying this contract is treated
// identically (local filesystem, Google Drive, etc.).
type FileProvider interface {
	// List returns the documents currently available.
	List(ctx context.Context) ([]FileInfo, error)

	// Fetch returns the raw bytes of a document.
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// FileUploader is implemented by providers that accept new files.
type FileUploader interface {
	// Upload stores a new file and returns its assigned ID.
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// FileWatcher is implemented by providers that can push change
// notifications.
type FileWatcher interface {
	// Watch emits an event whenever the backing store changes.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
