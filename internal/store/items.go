package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/optiprofile/ranker/pkg/types"
)

// CreateItem persists a new rank item. ID and CreatedAt are filled in
// when empty. Metrics are always stored as a JSON object, never null.
func (s *Store) CreateItem(ctx context.Context, item *types.RankItem) error {
	if !types.ValidPlatform(item.Platform) {
		return fmt.Errorf("%w: unknown platform %q", types.ErrValidation, item.Platform)
	}
	if strings.TrimSpace(item.Section) == "" {
		return fmt.Errorf("%w: section is required", types.ErrValidation)
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Metrics == nil {
		item.Metrics = map[string]float64{}
	}

	metricsJSON, err := json.Marshal(item.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	var embeddingID any
	if item.EmbeddingID != "" {
		embeddingID = item.EmbeddingID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rank_items (id, platform, section, source_ref, embedding_id, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, string(item.Platform), item.Section, item.SourceRef, embeddingID, string(metricsJSON), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert item: %v", types.ErrStoreFailed, err)
	}
	return nil
}

// GetItem retrieves one item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*types.RankItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, platform, section, source_ref, embedding_id, metrics, created_at
		FROM rank_items WHERE id = ?
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: item %s", types.ErrNotFound, id)
	}
	return item, err
}

// FindItemBySourceRef looks up an item by its platform and source
// reference. Bootstrap uses this to skip already-ingested content.
func (s *Store) FindItemBySourceRef(ctx context.Context, platform types.Platform, sourceRef string) (*types.RankItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, platform, section, source_ref, embedding_id, metrics, created_at
		FROM rank_items WHERE platform = ? AND source_ref = ?
		ORDER BY created_at LIMIT 1
	`, string(platform), sourceRef)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no item for source ref", types.ErrNotFound)
	}
	return item, err
}

// SetItemEmbedding records the embedding back-reference for an item.
// This is the only mutation allowed on a stored item.
func (s *Store) SetItemEmbedding(ctx context.Context, itemID, embeddingID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rank_items SET embedding_id = ? WHERE id = ?
	`, embeddingID, itemID)
	if err != nil {
		return fmt.Errorf("%w: update item: %v", types.ErrStoreFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", types.ErrNotFound, itemID)
	}
	return nil
}

// DeleteItem removes an item. Pairs referencing it cascade away.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rank_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: delete item: %v", types.ErrStoreFailed, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: item %s", types.ErrNotFound, id)
	}
	return nil
}

// ListItems returns up to limit items, newest first, optionally filtered
// by platform. A limit of 0 means no cap.
func (s *Store) ListItems(ctx context.Context, platform types.Platform, limit int) ([]*types.RankItem, error) {
	query := `
		SELECT id, platform, section, source_ref, embedding_id, metrics, created_at
		FROM rank_items
	`
	var args []any
	if platform != "" {
		query += " WHERE platform = ?"
		args = append(args, string(platform))
	}
	query += " ORDER BY created_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %v", types.ErrStoreFailed, err)
	}
	defer rows.Close()

	var items []*types.RankItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems counts items, optionally filtered by platform ("" = all).
func (s *Store) CountItems(ctx context.Context, platform types.Platform) (int, error) {
	var count int
	var err error
	if platform == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rank_items").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rank_items WHERE platform = ?", string(platform)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count items: %v", types.ErrStoreFailed, err)
	}
	return count, nil
}

// PurgeItems deletes all items for a platform ("" = all platforms) and,
// through cascades, every pair referencing them. Returns the number of
// items removed.
func (s *Store) PurgeItems(ctx context.Context, platform types.Platform) (int, error) {
	var res sql.Result
	var err error
	if platform == "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM rank_items")
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM rank_items WHERE platform = ?", string(platform))
	}
	if err != nil {
		return 0, fmt.Errorf("%w: purge items: %v", types.ErrStoreFailed, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*types.RankItem, error) {
	var item types.RankItem
	var platform, metricsJSON string
	var embeddingID sql.NullString

	err := row.Scan(&item.ID, &platform, &item.Section, &item.SourceRef, &embeddingID, &metricsJSON, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Platform = types.Platform(platform)
	if embeddingID.Valid {
		item.EmbeddingID = embeddingID.String
	}
	if err := unmarshalMetrics(metricsJSON, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func unmarshalMetrics(metricsJSON string, item *types.RankItem) error {
	if err := json.Unmarshal([]byte(metricsJSON), &item.Metrics); err != nil {
		return fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if item.Metrics == nil {
		item.Metrics = map[string]float64{}
	}
	return nil
}
