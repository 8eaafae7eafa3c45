// Package sqlite persists the vector index and corpus state so a
// restart does not force a full re-embed of the Drive folder.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/askdrive/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// Store is a SQLite-backed snapshot of the index and corpus state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.askdrive/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".askdrive", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for i, name := range upFiles {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveIndex replaces the persisted index with the given entries. Entry
// order is preserved so a reload keeps the insertion-order tie break.
func (s *Store) SaveIndex(ctx context.Context, entries []domain.IndexEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, document_name, ordinal, text, start_offset, end_offset, marker, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.DocumentID,
			e.DocumentName,
			e.Chunk.Ordinal,
			e.Chunk.Text,
			e.Chunk.Start,
			e.Chunk.End,
			e.Chunk.Marker,
			float32SliceToBytes(e.Vector),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s/%d: %w", e.DocumentID, e.Chunk.Ordinal, err)
		}
	}

	return tx.Commit()
}

// LoadIndex returns the persisted entries in their original insertion
// order.
func (s *Store) LoadIndex(ctx context.Context) ([]domain.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, document_name, ordinal, text, start_offset, end_offset, marker, embedding
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var e domain.IndexEntry
		var blob []byte
		err := rows.Scan(
			&e.DocumentID,
			&e.DocumentName,
			&e.Chunk.Ordinal,
			&e.Chunk.Text,
			&e.Chunk.Start,
			&e.Chunk.End,
			&e.Chunk.Marker,
			&blob,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		e.Chunk.DocumentID = e.DocumentID
		e.Vector = bytesToFloat32Slice(blob)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SaveState replaces the persisted corpus state.
func (s *Store) SaveState(ctx context.Context, state *domain.CorpusState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, hash, status, reason, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, id := range state.IDs() {
		st, ok := state.Get(id)
		if !ok {
			continue
		}
		_, err := stmt.ExecContext(ctx, id, st.Hash, string(st.Status), st.Reason, st.UpdatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadState returns the persisted corpus state.
func (s *Store) LoadState(ctx context.Context) (*domain.CorpusState, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, hash, status, reason FROM documents")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	state := domain.NewCorpusState()
	for rows.Next() {
		var id, hash, status, reason string
		if err := rows.Scan(&id, &hash, &status, &reason); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		state.Set(id, domain.DocumentState{
			Hash:   hash,
			Status: domain.IngestionStatus(status),
			Reason: reason,
		})
	}

	return state, rows.Err()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
