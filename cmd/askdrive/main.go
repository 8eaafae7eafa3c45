// Command askdrive indexes the documents in a Google Drive folder and
// answers questions about them from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	configfile "github.com/custodia-labs/askdrive/internal/adapters/driven/config/file"
	openaiembed "github.com/custodia-labs/askdrive/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/askdrive/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/askdrive/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/askdrive/internal/adapters/driving/cli"
	"github.com/custodia-labs/askdrive/internal/chunker"
	"github.com/custodia-labs/askdrive/internal/core/domain"
	"github.com/custodia-labs/askdrive/internal/core/ports/driven"
	"github.com/custodia-labs/askdrive/internal/core/services"
	"github.com/custodia-labs/askdrive/internal/index/memory"
	"github.com/custodia-labs/askdrive/internal/loaders"
	"github.com/custodia-labs/askdrive/internal/loaders/docx"
	"github.com/custodia-labs/askdrive/internal/loaders/pdf"
	"github.com/custodia-labs/askdrive/internal/loaders/plaintext"
	"github.com/custodia-labs/askdrive/internal/logger"
	"github.com/custodia-labs/askdrive/internal/providers/filesystem"
	"github.com/custodia-labs/askdrive/internal/providers/gdrive"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBuilder(buildServices)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServices wires the adapters and services from the config.
func buildServices(configDir string) (cli.Services, error) {
	ctx := context.Background()

	cfg, err := configfile.Load(configDir)
	if err != nil {
		return cli.Services{}, err
	}

	apiKey := configfile.APIKey()
	if apiKey == "" {
		return cli.Services{}, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrInvalidConfig)
	}

	embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey: apiKey,
		Model:  cfg.Models.Embedding,
	})
	if err != nil {
		return cli.Services{}, err
	}

	llm, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey: apiKey,
		Model:  cfg.Models.Chat,
	})
	if err != nil {
		return cli.Services{}, err
	}

	splitter, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return cli.Services{}, err
	}

	registry := loaders.NewRegistry(plaintext.New(), docx.New(), pdf.New())
	if err := pdf.CheckAvailable(); err != nil {
		logger.Warn("PDF support disabled: %v\n%s", err, pdf.InstallInstructions())
	}

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return cli.Services{}, err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return cli.Services{}, err
	}

	idx := memory.New()
	entries, err := store.LoadIndex(ctx)
	if err != nil {
		return cli.Services{}, fmt.Errorf("load persisted index: %w", err)
	}
	for _, e := range entries {
		if err := idx.Insert(ctx, e); err != nil {
			return cli.Services{}, fmt.Errorf("restore persisted index: %w", err)
		}
	}
	state, err := store.LoadState(ctx)
	if err != nil {
		return cli.Services{}, fmt.Errorf("load corpus state: %w", err)
	}
	if len(entries) > 0 {
		logger.Debug("restored %d chunks across %d documents", idx.Len(), idx.DocumentCount())
	}

	retry := services.RetryPolicy{
		MaxAttempts: cfg.Retrieval.RetryAttempts,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}

	corpus := services.NewCorpusService(provider, registry, splitter, embedder, idx)
	corpus.SetState(state)
	corpus.SetRetryPolicy(retry)

	answer := services.NewAnswerService(idx, embedder, llm)
	answer.SetRetryPolicy(retry)

	s := cli.Services{
		Syncer:   corpus,
		Answerer: answer,
		TopK:     cfg.Retrieval.TopK,
		SaveSnapshot: func(ctx context.Context) error {
			if err := store.SaveIndex(ctx, idx.Entries()); err != nil {
				return err
			}
			return store.SaveState(ctx, corpus.State())
		},
	}
	if up, ok := provider.(driven.FileUploader); ok {
		s.Uploader = up
	}
	if w, ok := provider.(driven.FileWatcher); ok {
		s.Watcher = w
	}
	return s, nil
}

// buildProvider picks the document source: a local directory when
// local_dir is set, the Drive folder otherwise.
func buildProvider(ctx context.Context, cfg *configfile.Config) (driven.FileProvider, error) {
	if cfg.LocalDir != "" {
		return filesystem.New(cfg.LocalDir)
	}
	return gdrive.New(ctx, gdrive.Config{
		FolderID:        cfg.Drive.FolderID,
		CredentialsPath: cfg.Drive.CredentialsPath,
	})
}
