// Package loaders provides format-tag dispatch to text extraction
// loaders. Unsupported formats fail fast and loudly at dispatch time.
package loaders

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps format tags to loaders. New formats register a new
// loader without modifying callers.
type Registry struct {
	loaders map[domain.Format]driven.Loader
}

// NewRegistry creates a registry holding the given loaders.
func NewRegistry(ls ...driven.Loader) *Registry {
	r := &Registry{loaders: make(map[domain.Format]driven.Loader, len(ls))}
	for _, l := range ls {
		r.Register(l)
	}
	return r
}

// Register adds a loader, replacing any previous loader for the same
// format tag.
func (r *Registry) Register(l driven.Loader) {
	r.loaders[l.Format()] = l
}

// Load dispatches content to the loader registered for the format.
func (r *Registry) Load(ctx context.Context, format domain.Format, content []byte) ([]domain.Section, error) {
	l, ok := r.loaders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return l.Load(ctx, content)
}

// Supports reports whether a loader is registered for the format.
func (r *Registry) Supports(format domain.Format) bool {
	_, ok := r.loaders[format]
	return ok
}

// Formats returns the registered format tags, sorted.
func (r *Registry) Formats() []domain.Format {
	formats := make([]domain.Format, 0, len(r.loaders))
	for f := range r.loaders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
