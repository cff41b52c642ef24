package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/optiprofile/ranker/pkg/types"
)

// CreatePair persists a labeled pair after validating it: both items
// must already exist, the pair must not be a self-pair, and the label
// must be in {-1, 0, 1}.
func (s *Store) CreatePair(ctx context.Context, pair *types.RankPair) error {
	if pair.AItemID == "" || pair.BItemID == "" {
		return fmt.Errorf("%w: pair requires two item ids", types.ErrValidation)
	}
	if pair.AItemID == pair.BItemID {
		return fmt.Errorf("%w: pair cannot reference the same item twice", types.ErrValidation)
	}
	if !types.ValidLabel(pair.Label) {
		return fmt.Errorf("%w: label must be -1, 0 or 1, got %d", types.ErrValidation, pair.Label)
	}
	if pair.Source == "" {
		return fmt.Errorf("%w: pair source is required", types.ErrValidation)
	}
	for _, id := range []string{pair.AItemID, pair.BItemID} {
		var exists bool
		if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM rank_items WHERE id = ?)", id).Scan(&exists); err != nil {
			return fmt.Errorf("%w: check item: %v", types.ErrStoreFailed, err)
		}
		if !exists {
			return fmt.Errorf("%w: referenced item %s does not exist", types.ErrValidation, id)
		}
	}

	if pair.ID == "" {
		pair.ID = uuid.New().String()
	}
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = time.Now().UTC()
	}

	tagsJSON, err := json.Marshal(pair.ReasonTags)
	if err != nil {
		return fmt.Errorf("failed to marshal reason tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rank_pairs (id, a_item_id, b_item_id, label, reason_tags, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, pair.ID, pair.AItemID, pair.BItemID, pair.Label, string(tagsJSON), string(pair.Source), pair.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert pair: %v", types.ErrStoreFailed, err)
	}
	return nil
}

// GetPair retrieves one pair by ID.
func (s *Store) GetPair(ctx context.Context, id string) (*types.RankPair, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, a_item_id, b_item_id, label, reason_tags, source, created_at
		FROM rank_pairs WHERE id = ?
	`, id)
	pair, err := scanPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pair %s", types.ErrNotFound, id)
	}
	return pair, err
}

// ListPairs returns up to limit pairs in creation order, optionally
// filtered by source. A limit of 0 means no cap. Export relies on the
// stable ordering for reproducible dataset hashes.
func (s *Store) ListPairs(ctx context.Context, source types.PairSource, limit int) ([]*types.RankPair, error) {
	query := `
		SELECT id, a_item_id, b_item_id, label, reason_tags, source, created_at
		FROM rank_pairs
	`
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, string(source))
	}
	query += " ORDER BY created_at, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list pairs: %v", types.ErrStoreFailed, err)
	}
	defer rows.Close()

	var pairs []*types.RankPair
	for rows.Next() {
		pair, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// CountPairs counts pairs, optionally filtered by source ("" = all).
func (s *Store) CountPairs(ctx context.Context, source types.PairSource) (int, error) {
	var count int
	var err error
	if source == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rank_pairs").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rank_pairs WHERE source = ?", string(source)).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: count pairs: %v", types.ErrStoreFailed, err)
	}
	return count, nil
}

// LabelDistribution returns the per-label pair counts, keyed by the
// label's decimal string, optionally filtered by source ("" = all).
func (s *Store) LabelDistribution(ctx context.Context, source types.PairSource) (map[string]int, error) {
	query := "SELECT label, COUNT(*) FROM rank_pairs"
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, string(source))
	}
	query += " GROUP BY label"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: label distribution: %v", types.ErrStoreFailed, err)
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var label, count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		dist[strconv.Itoa(label)] = count
	}
	return dist, rows.Err()
}

func scanPair(row rowScanner) (*types.RankPair, error) {
	var pair types.RankPair
	var source string
	var tagsJSON sql.NullString

	err := row.Scan(&pair.ID, &pair.AItemID, &pair.BItemID, &pair.Label, &tagsJSON, &source, &pair.CreatedAt)
	if err != nil {
		return nil, err
	}
	pair.Source = types.PairSource(source)
	if tagsJSON.Valid && tagsJSON.String != "" && tagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &pair.ReasonTags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reason tags: %w", err)
		}
	}
	return &pair, nil
}
