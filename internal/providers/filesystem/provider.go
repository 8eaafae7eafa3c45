// Package filesystem provides a local directory file provider, mainly
// for offline use and testing. File IDs are paths relative to the root.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/askdrive/internal/checksum"
	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
)

// Ensure Provider implements the interfaces.
var (
	_ driven.FileProvider = (*Provider)(nil)
	_ driven.FileUploader = (*Provider)(nil)
	_ driven.FileWatcher  = (*Provider)(nil)
)

// Provider serves documents from a directory tree.
type Provider struct {
	root string
}

// New creates a provider rooted at dir. The directory must exist.
func New(dir string) (*Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidConfig, dir)
	}
	return &Provider{root: dir}, nil
}

// Root returns the directory this provider serves.
func (p *Provider) Root() string {
	return p.root
}

// List walks the tree and returns every document with a recognised
// extension. Hidden files and directories are skipped.
func (p *Provider) List(ctx context.Context) ([]driven.FileInfo, error) {
	var infos []driven.FileInfo

	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if path != p.root && isHidden(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(name) {
			return nil
		}

		format := domain.FormatFromName(name)
		if format == "" {
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		infos = append(infos, driven.FileInfo{
			ID:     filepath.ToSlash(rel),
			Name:   name,
			Format: format,
			Hash:   checksum.Sum(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", p.root, err)
	}

	return infos, nil
}

// Fetch reads one document by its relative path.
func (p *Provider) Fetch(_ context.Context, id string) ([]byte, error) {
	path, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

// Upload writes a new file into the root directory.
func (p *Provider) Upload(_ context.Context, name string, data []byte) (string, error) {
	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// resolve maps an ID to an absolute path, rejecting escapes from the
// root directory.
func (p *Provider) resolve(id string) (string, error) {
	path := filepath.Join(p.root, filepath.FromSlash(id))
	rel, err := filepath.Rel(p.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes the provider root", domain.ErrInvalidInput, id)
	}
	return path, nil
}

// isHidden reports whether a file or directory name is dot-prefixed.
// The special entries "." and ".." do not count.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
