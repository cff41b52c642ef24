// Package scoring implements the inference service: it scores and
// compares rank items with the trained model when one is active and
// with the deterministic heuristic otherwise, tagging every result
// with its provenance.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/optiprofile/ranker/pkg/types"
)

// PointerFileName is the activation pointer written by the trainer
// into the models directory.
const PointerFileName = "active_model.json"

// LoadPointer reads the activation pointer from the models directory.
// A missing pointer file returns ErrNotFound; that is the normal state
// before any training has happened.
func LoadPointer(modelsDir string) (*types.ActiveModelPointer, error) {
	raw, err := os.ReadFile(filepath.Join(modelsDir, PointerFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no active model pointer", types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model pointer: %w", err)
	}

	// The external trainer historically wrote the model filename under
	// "model"; accept both spellings.
	var onDisk struct {
		ActiveModel string `json:"activeModel"`
		Model       string `json:"model"`
		Metadata    string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return nil, fmt.Errorf("failed to parse model pointer: %w", err)
	}
	ptr := types.ActiveModelPointer{ActiveModel: onDisk.ActiveModel, Metadata: onDisk.Metadata}
	if ptr.ActiveModel == "" {
		ptr.ActiveModel = onDisk.Model
	}
	if ptr.ActiveModel == "" || ptr.Metadata == "" {
		return nil, fmt.Errorf("%w: pointer missing activeModel or metadata", types.ErrValidation)
	}
	return &ptr, nil
}

// SavePointer atomically writes the activation pointer. Filenames are
// stored relative to the models directory.
func SavePointer(modelsDir string, ptr *types.ActiveModelPointer) error {
	if ptr.ActiveModel == "" || ptr.Metadata == "" {
		return fmt.Errorf("%w: pointer requires activeModel and metadata", types.ErrValidation)
	}
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	raw, err := json.MarshalIndent(ptr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model pointer: %w", err)
	}

	// Write-then-rename so a concurrent reader never sees a torn file.
	tmp := filepath.Join(modelsDir, PointerFileName+".tmp")
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write model pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(modelsDir, PointerFileName)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to activate model pointer: %w", err)
	}
	return nil
}

// ClearPointer removes the activation pointer, returning the service
// to heuristic-only mode on the next initialization.
func ClearPointer(modelsDir string) error {
	err := os.Remove(filepath.Join(modelsDir, PointerFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove model pointer: %w", err)
	}
	return nil
}

// LoadMetadata reads and validates the model metadata file referenced
// by a pointer.
func LoadMetadata(modelsDir string, ptr *types.ActiveModelPointer) (*types.ModelMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(modelsDir, ptr.Metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}
	var meta types.ModelMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}
	if meta.EmbeddingDim <= 0 || meta.MetricsDim <= 0 {
		return nil, fmt.Errorf("%w: metadata has non-positive dimensions", types.ErrValidation)
	}
	return &meta, nil
}
