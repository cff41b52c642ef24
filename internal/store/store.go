// Package store implements the durable dataset store for rank items,
// labeled pairs and training runs on SQLite, with sqlite-vec backing
// similarity lookups over persisted embeddings.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/optiprofile/ranker/pkg/types"
)

var (
	// Ensure sqlite-vec Auto() is called exactly once before any db connection
	vecAutoOnce sync.Once
)

// SchemaVersion is incremented when schema changes require a rebuild.
const SchemaVersion = 1

// Store provides CRUD and aggregate queries over the ranking dataset.
type Store struct {
	db         *sql.DB
	path       string
	dimensions int
}

// Open opens (or creates) the dataset store at the given path.
func Open(path string) (*Store, error) {
	// Register sqlite-vec before opening any database connection so the
	// vec_* functions are available.
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent reads, busy_timeout to wait for locks,
	// foreign keys on so pair cascades are enforced by the engine as a
	// backstop behind application-level validation.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: path}

	if _, err := db.Exec("SELECT vec_version()"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Recover the vector index dimensionality from prior runs so the
	// similarity table is usable without a fresh SaveEmbedding.
	var stored sql.NullInt64
	if err := db.QueryRow("SELECT MAX(dimensions) FROM embeddings").Scan(&stored); err == nil && stored.Valid {
		if err := s.createVectorTable(int(stored.Int64)); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// createSchema creates all necessary tables.
func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rank_items (
			id TEXT PRIMARY KEY,
			platform TEXT NOT NULL,
			section TEXT NOT NULL,
			source_ref TEXT NOT NULL,
			embedding_id TEXT,
			metrics TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_items_platform ON rank_items(platform)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_items_section ON rank_items(section)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_items_source_ref ON rank_items(source_ref)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_items_created_at ON rank_items(created_at)`,
		`CREATE TABLE IF NOT EXISTS rank_pairs (
			id TEXT PRIMARY KEY,
			a_item_id TEXT NOT NULL REFERENCES rank_items(id) ON DELETE CASCADE,
			b_item_id TEXT NOT NULL REFERENCES rank_items(id) ON DELETE CASCADE,
			label INTEGER NOT NULL CHECK (label IN (-1, 0, 1)),
			reason_tags TEXT,
			source TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_pairs_source ON rank_pairs(source)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_pairs_label ON rank_pairs(label)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_pairs_a_item ON rank_pairs(a_item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_pairs_b_item ON rank_pairs(b_item_id)`,
		`CREATE TABLE IF NOT EXISTS rank_runs (
			id TEXT PRIMARY KEY,
			model_path TEXT NOT NULL,
			metadata_path TEXT NOT NULL,
			dataset_hash TEXT NOT NULL,
			train_metrics TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_runs_created_at ON rank_runs(created_at)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			text_hash TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dimensions INTEGER NOT NULL,
			vector BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// createVectorTable creates the vec0 similarity table with the given
// dimensions, dropping it first if the dimensionality changed.
func (s *Store) createVectorTable(dimensions int) error {
	if s.dimensions == dimensions {
		return nil // Already created
	}

	if s.dimensions != 0 {
		_, _ = s.db.Exec("DROP TABLE IF EXISTS embedding_index")
	}
	s.dimensions = dimensions

	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS embedding_index USING vec0(
			text_hash TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, dimensions))
	if err != nil {
		return fmt.Errorf("failed to create vector table: %w", err)
	}
	return nil
}

// Close releases resources and closes the connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Stats summarizes store contents for status output.
type Stats struct {
	Items       int
	Pairs       int
	Runs        int
	Embeddings  int
	DBSizeBytes int64
}

// GetStats returns store statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM rank_items", &stats.Items},
		{"SELECT COUNT(*) FROM rank_pairs", &stats.Pairs},
		{"SELECT COUNT(*) FROM rank_runs", &stats.Runs},
		{"SELECT COUNT(*) FROM embeddings", &stats.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrStoreFailed, err)
		}
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}
	return stats, nil
}
