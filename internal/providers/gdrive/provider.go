package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
	"github.com/custodia-labs/askdrive/internal/logger"
)

// Ensure Provider implements the interfaces.
var (
	_ driven.FileProvider = (*Provider)(nil)
	_ driven.FileUploader = (*Provider)(nil)
)

// MaxFileSize caps how much content is downloaded per file (20MB).
const MaxFileSize = 20 * 1024 * 1024

// listFields keeps list responses small.
const listFields = "nextPageToken, files(id, name, mimeType, md5Checksum, trashed)"

// Config holds the Drive provider configuration.
type Config struct {
	// FolderID is the Drive folder to read from and upload into.
	FolderID string

	// CredentialsPath points at a service account JSON key file.
	CredentialsPath string

	// RateLimit overrides the default request pacing.
	RateLimit RateLimitConfig
}

// Provider lists, fetches and uploads files in one Drive folder.
type Provider struct {
	svc      *drive.Service
	folderID string
	limiter  *RateLimiter
}

// New creates a Drive provider authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.FolderID == "" {
		return nil, fmt.Errorf("%w: drive folder_id is required", domain.ErrInvalidConfig)
	}
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("%w: drive credentials_path is required", domain.ErrInvalidConfig)
	}

	keyData, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, keyData, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service account credentials: %v", domain.ErrInvalidConfig, err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return NewWithService(svc, cfg.FolderID, cfg.RateLimit), nil
}

// NewWithService creates a provider around an existing Drive service.
// Used by tests with a stubbed HTTP client.
func NewWithService(svc *drive.Service, folderID string, rl RateLimitConfig) *Provider {
	return &Provider{
		svc:      svc,
		folderID: folderID,
		limiter:  NewRateLimiter(rl),
	}
}

// List returns the indexable files in the folder. Folders, trashed
// files and unrecognised formats are filtered out here; format
// detection goes by file name extension.
func (p *Provider) List(ctx context.Context) ([]driven.FileInfo, error) {
	var infos []driven.FileInfo

	query := fmt.Sprintf("'%s' in parents and trashed = false", p.folderID)
	pageToken := ""
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := p.svc.Files.List().
			Q(query).
			Fields(listFields).
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			if isRateLimited(err) {
				p.limiter.RecordRateLimitError(0)
			}
			return nil, fmt.Errorf("list drive folder: %w", wrapError(err))
		}

		for _, f := range page.Files {
			if f.MimeType == "application/vnd.google-apps.folder" {
				continue
			}
			format := domain.FormatFromName(f.Name)
			if format == "" {
				logger.Debug("gdrive: skipping %q (unrecognised extension)", f.Name)
				continue
			}
			infos = append(infos, driven.FileInfo{
				ID:     f.Id,
				Name:   f.Name,
				Format: format,
				Hash:   f.Md5Checksum,
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return infos, nil
}

// Fetch downloads the content of one file.
func (p *Provider) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := p.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		if isRateLimited(err) {
			p.limiter.RecordRateLimitError(0)
		}
		return nil, fmt.Errorf("download file %s: %w", id, wrapError(err))
	}
	defer resp.Body.Close()

	// Read one byte past the cap so an oversize file fails instead of
	// being indexed truncated under its full-content hash.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", id, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: file %s exceeds %d bytes", domain.ErrInvalidInput, id, MaxFileSize)
	}
	return data, nil
}

// Upload creates a new file in the folder and returns its Drive ID.
func (p *Provider) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	meta := &drive.File{
		Name:    name,
		Parents: []string{p.folderID},
	}

	created, err := p.svc.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		if isRateLimited(err) {
			p.limiter.RecordRateLimitError(0)
		}
		return "", fmt.Errorf("upload %q: %w", name, wrapError(err))
	}

	logger.Debug("gdrive: uploaded %q as %s", name, created.Id)
	return created.Id, nil
}
