package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/optiprofile/ranker/pkg/types"
)

// CreateRun records a completed training invocation.
func (s *Store) CreateRun(ctx context.Context, run *types.RankRun) error {
	if run.ModelPath == "" || run.MetadataPath == "" {
		return fmt.Errorf("%w: run requires model and metadata paths", types.ErrValidation)
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.TrainMetrics == nil {
		run.TrainMetrics = map[string]float64{}
	}

	metricsJSON, err := json.Marshal(run.TrainMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal train metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rank_runs (id, model_path, metadata_path, dataset_hash, train_metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.ModelPath, run.MetadataPath, run.DatasetHash, string(metricsJSON), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert run: %v", types.ErrStoreFailed, err)
	}
	return nil
}

// LatestRun returns the most recent training run.
func (s *Store) LatestRun(ctx context.Context) (*types.RankRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model_path, metadata_path, dataset_hash, train_metrics, created_at
		FROM rank_runs ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no training runs recorded", types.ErrNotFound)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit of 0 means
// no cap.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*types.RankRun, error) {
	query := `
		SELECT id, model_path, metadata_path, dataset_hash, train_metrics, created_at
		FROM rank_runs ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", types.ErrStoreFailed, err)
	}
	defer rows.Close()

	var runs []*types.RankRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*types.RankRun, error) {
	var run types.RankRun
	var metricsJSON string

	err := row.Scan(&run.ID, &run.ModelPath, &run.MetadataPath, &run.DatasetHash, &metricsJSON, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.TrainMetrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal train metrics: %w", err)
	}
	if run.TrainMetrics == nil {
		run.TrainMetrics = map[string]float64{}
	}
	return &run, nil
}
