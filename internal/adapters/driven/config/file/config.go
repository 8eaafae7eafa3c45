// Package file provides TOML-backed configuration for askdrive.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// Defaults applied when the config file omits a value.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 4
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-4o"
	DefaultRetryAttempts  = 3
)

// Config holds the askdrive configuration, stored as TOML in the
// askdrive config directory.
type Config struct {
	// Drive configures the Google Drive source.
	Drive DriveConfig `toml:"drive"`

	// Chunking configures the text splitter.
	Chunking ChunkingConfig `toml:"chunking"`

	// Models names the OpenAI models to use.
	Models ModelConfig `toml:"models"`

	// Retrieval configures answering.
	Retrieval RetrievalConfig `toml:"retrieval"`

	// LocalDir serves documents from a local directory instead of
	// Drive when set. Mainly for offline use and testing.
	LocalDir string `toml:"local_dir"`

	// DataDir is where the index database lives.
	// Defaults to the config directory.
	DataDir string `toml:"data_dir"`

	path string `toml:"-"`
}

// DriveConfig identifies the Drive folder and credentials.
type DriveConfig struct {
	// FolderID is the Google Drive folder to index.
	FolderID string `toml:"folder_id"`

	// CredentialsPath points at a service account JSON key file.
	CredentialsPath string `toml:"credentials_path"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// ModelConfig names the OpenAI models.
type ModelConfig struct {
	Embedding string `toml:"embedding"`
	Chat      string `toml:"chat"`
}

// RetrievalConfig configures answering.
type RetrievalConfig struct {
	// TopK is how many chunks back each answer.
	TopK int `toml:"top_k"`

	// RetryAttempts bounds retries of transient API failures.
	RetryAttempts int `toml:"retry_attempts"`
}

// DefaultDir returns the askdrive config directory, ~/.askdrive.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".askdrive"), nil
}

// Load reads the config from configDir, applying defaults for missing
// values. A missing file yields a pure-defaults config. If configDir is
// empty the default directory is used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	cfg := &Config{path: filepath.Join(configDir, "config.toml")}

	// set records which zero-affine keys the file states explicitly,
	// so a configured zero is not replaced with the default.
	var set setKeys

	data, err := os.ReadFile(cfg.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, cfg.path, err)
		}
		if err := toml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, cfg.path, err)
		}
	}

	cfg.applyDefaults(configDir, set)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setKeys mirrors the keys where zero is a valid configured value.
// A nil pointer means the key was absent from the file.
type setKeys struct {
	Chunking struct {
		ChunkOverlap *int `toml:"chunk_overlap"`
	} `toml:"chunking"`
	Retrieval struct {
		RetryAttempts *int `toml:"retry_attempts"`
	} `toml:"retrieval"`
}

func (c *Config) applyDefaults(configDir string, set setKeys) {
	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if set.Chunking.ChunkOverlap == nil && DefaultChunkOverlap < c.Chunking.ChunkSize {
		c.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Models.Embedding == "" {
		c.Models.Embedding = DefaultEmbeddingModel
	}
	if c.Models.Chat == "" {
		c.Models.Chat = DefaultChatModel
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if set.Retrieval.RetryAttempts == nil {
		c.Retrieval.RetryAttempts = DefaultRetryAttempts
	}
	if c.DataDir == "" {
		c.DataDir = configDir
	}
}

// Validate checks invariants the rest of the system relies on.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d",
			domain.ErrInvalidConfig, c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d",
			domain.ErrInvalidConfig, c.Chunking.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d",
			domain.ErrInvalidConfig, c.Retrieval.TopK)
	}
	if c.Retrieval.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry_attempts must not be negative, got %d",
			domain.ErrInvalidConfig, c.Retrieval.RetryAttempts)
	}
	return nil
}

// Save persists the config to its TOML file with restricted permissions.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.path
}

// APIKey reads the OpenAI API key from the environment. The key never
// lives in the config file.
func APIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}
