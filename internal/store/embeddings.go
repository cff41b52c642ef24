package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/optiprofile/ranker/pkg/types"
)

// SaveEmbedding persists one embedding record, keyed by its content
// hash, and mirrors the vector into the vec0 similarity index. Saving
// the same hash again is a no-op overwrite with identical content.
func (s *Store) SaveEmbedding(ctx context.Context, rec *types.EmbeddingRecord) error {
	if rec.TextHash == "" {
		return fmt.Errorf("%w: embedding requires a text hash", types.ErrValidation)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: embedding vector is empty", types.ErrValidation)
	}
	if rec.Dimensions == 0 {
		rec.Dimensions = len(rec.Vector)
	}
	if rec.Dimensions != len(rec.Vector) {
		return fmt.Errorf("%w: declared %d dimensions, vector has %d", types.ErrDimensionMismatch, rec.Dimensions, len(rec.Vector))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if err := s.ensureVectorTable(ctx, rec.Dimensions); err != nil {
		return err
	}

	blob, err := sqlite_vec.SerializeFloat32(rec.Vector)
	if err != nil {
		return fmt.Errorf("failed to serialize vector: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", types.ErrStoreFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (text_hash, model, dimensions, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.TextHash, rec.Model, rec.Dimensions, blob, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert embedding: %v", types.ErrStoreFailed, err)
	}

	// vec0 virtual tables do not support INSERT OR REPLACE.
	_, _ = tx.ExecContext(ctx, "DELETE FROM embedding_index WHERE text_hash = ?", rec.TextHash)
	_, err = tx.ExecContext(ctx, "INSERT INTO embedding_index (text_hash, embedding) VALUES (?, ?)", rec.TextHash, blob)
	if err != nil {
		return fmt.Errorf("%w: index embedding: %v", types.ErrStoreFailed, err)
	}

	return tx.Commit()
}

// GetEmbedding retrieves one embedding record by content hash.
func (s *Store) GetEmbedding(ctx context.Context, textHash string) (*types.EmbeddingRecord, error) {
	var rec types.EmbeddingRecord
	var blob []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT text_hash, model, dimensions, vector, created_at
		FROM embeddings WHERE text_hash = ?
	`, textHash).Scan(&rec.TextHash, &rec.Model, &rec.Dimensions, &blob, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: embedding %s", types.ErrNotFound, textHash)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get embedding: %v", types.ErrStoreFailed, err)
	}

	rec.Vector = deserializeFloat32(blob)
	return &rec, nil
}

// ItemMatch pairs an item with its similarity to a query vector.
type ItemMatch struct {
	Item  *types.RankItem
	Score float64
}

// SimilarItems returns up to k items whose stored embeddings are most
// similar to the query vector, best match first.
func (s *Store) SimilarItems(ctx context.Context, query []float32, k int) ([]ItemMatch, error) {
	if s.dimensions == 0 {
		// Nothing indexed yet.
		return nil, nil
	}
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", types.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		k = 10
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.platform, i.section, i.source_ref, i.embedding_id, i.metrics, i.created_at,
			vec_distance_cosine(v.embedding, ?) AS distance
		FROM embedding_index v
		JOIN rank_items i ON i.embedding_id = v.text_hash
		ORDER BY distance ASC, i.id
		LIMIT ?
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", types.ErrStoreFailed, err)
	}
	defer rows.Close()

	var matches []ItemMatch
	for rows.Next() {
		var item types.RankItem
		var platform, metricsJSON string
		var embeddingID sql.NullString
		var distance float64
		if err := rows.Scan(&item.ID, &platform, &item.Section, &item.SourceRef, &embeddingID, &metricsJSON, &item.CreatedAt, &distance); err != nil {
			return nil, err
		}
		item.Platform = types.Platform(platform)
		if embeddingID.Valid {
			item.EmbeddingID = embeddingID.String
		}
		if err := unmarshalMetrics(metricsJSON, &item); err != nil {
			return nil, err
		}
		// Convert cosine distance to a similarity score.
		matches = append(matches, ItemMatch{Item: &item, Score: 1 - distance})
	}
	return matches, rows.Err()
}

func deserializeFloat32(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := uint32(blob[i*4]) | uint32(blob[i*4+1])<<8 | uint32(blob[i*4+2])<<16 | uint32(blob[i*4+3])<<24
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}

// ensureVectorTable lazily creates the vec0 index once the embedding
// dimensionality is known, recovering it from existing rows on reopen.
func (s *Store) ensureVectorTable(ctx context.Context, dimensions int) error {
	if s.dimensions == dimensions {
		return nil
	}
	if s.dimensions == 0 {
		var stored sql.NullInt64
		if err := s.db.QueryRowContext(ctx, "SELECT MAX(dimensions) FROM embeddings").Scan(&stored); err == nil && stored.Valid && int(stored.Int64) != dimensions {
			return fmt.Errorf("%w: store holds %d-dimensional embeddings, got %d", types.ErrDimensionMismatch, stored.Int64, dimensions)
		}
	}
	return s.createVectorTable(dimensions)
}
