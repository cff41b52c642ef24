// Package trainer wraps the external Python training process. Training
// itself happens outside this codebase; this package exports the
// dataset, spawns the trainer, and records the resulting run.
package trainer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/optiprofile/ranker/internal/export"
	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/scoring"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/types"
)

const (
	// Artifact filenames written by the external trainer.
	ModelFileName    = "ranker.onnx"
	MetadataFileName = "ranker_metadata.json"
)

// Config configures one training invocation.
type Config struct {
	// PythonBin is the interpreter to run; defaults to "python3".
	PythonBin string
	// Script is the path to the training script.
	Script string
	// DatasetDir receives the exported dataset before training.
	DatasetDir string
	// ModelsDir receives the trained model artifacts.
	ModelsDir string
	// ExtraArgs are passed to the trainer verbatim (epochs, margin...).
	ExtraArgs []string
}

// Result summarizes one completed training invocation.
type Result struct {
	Run       *types.RankRun
	Metadata  *types.ModelMetadata
	Dataset   *types.DatasetMetadata
	Activated bool
}

// Trainer exports the dataset and drives the external training script.
type Trainer struct {
	store  *store.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a trainer. Script and ModelsDir are required.
func New(s *store.Store, cfg Config, logger *slog.Logger) (*Trainer, error) {
	if cfg.Script == "" {
		return nil, fmt.Errorf("%w: trainer script is required", types.ErrInvalidConfig)
	}
	if cfg.ModelsDir == "" {
		return nil, fmt.Errorf("%w: models directory is required", types.ErrInvalidConfig)
	}
	if cfg.PythonBin == "" {
		cfg.PythonBin = "python3"
	}
	if cfg.DatasetDir == "" {
		cfg.DatasetDir = filepath.Join(cfg.ModelsDir, "dataset")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{store: s, cfg: cfg, logger: logger}, nil
}

// Train exports the dataset, runs the external trainer, verifies its
// artifacts, normalizes the activation pointer and records a RankRun.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	dataset, err := export.New(t.store, t.logger).Export(ctx, export.Options{OutDir: t.cfg.DatasetDir})
	if err != nil {
		return nil, fmt.Errorf("dataset export failed: %w", err)
	}
	if dataset.PairCount == 0 {
		return nil, fmt.Errorf("%w: no pairs to train on", types.ErrValidation)
	}

	datasetPath := filepath.Join(t.cfg.DatasetDir, export.DatasetFileName)
	args := append([]string{
		t.cfg.Script,
		"--input", datasetPath,
		"--output", t.cfg.ModelsDir,
		"--metrics-dim", fmt.Sprintf("%d", dataset.MetricsDim),
		"--embedding-dim", fmt.Sprintf("%d", dataset.EmbeddingDim),
	}, t.cfg.ExtraArgs...)

	t.logger.Info("starting external trainer",
		"python", t.cfg.PythonBin, "script", t.cfg.Script, "pairs", dataset.PairCount)

	cmd := exec.CommandContext(ctx, t.cfg.PythonBin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("trainer process failed: %w", err)
	}

	meta, err := t.readMetadata()
	if err != nil {
		return nil, err
	}

	run := &types.RankRun{
		ModelPath:    filepath.Join(t.cfg.ModelsDir, ModelFileName),
		MetadataPath: filepath.Join(t.cfg.ModelsDir, MetadataFileName),
		DatasetHash:  dataset.DatasetHash,
		TrainMetrics: map[string]float64{
			"trainAccuracy": meta.TrainMetrics.TrainAccuracy,
			"trainLoss":     meta.TrainMetrics.TrainLoss,
			"valAccuracy":   meta.TrainMetrics.ValAccuracy,
			"valLoss":       meta.TrainMetrics.ValLoss,
		},
	}
	if err := t.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	activated := t.normalizePointer()

	t.logger.Info("training run recorded",
		"run", run.ID,
		"valAccuracy", meta.TrainMetrics.ValAccuracy,
		"activated", activated)

	return &Result{Run: run, Metadata: meta, Dataset: dataset, Activated: activated}, nil
}

// readMetadata parses the trainer's metadata artifact.
func (t *Trainer) readMetadata() (*types.ModelMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(t.cfg.ModelsDir, MetadataFileName))
	if err != nil {
		return nil, fmt.Errorf("trainer produced no metadata: %w", err)
	}
	var meta types.ModelMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse trainer metadata: %w", err)
	}
	return &meta, nil
}

// normalizePointer rewrites the trainer's activation pointer in the
// canonical format. Returns whether a model is activated.
func (t *Trainer) normalizePointer() bool {
	ptr, err := scoring.LoadPointer(t.cfg.ModelsDir)
	if err != nil {
		t.logger.Warn("trainer did not activate a model", "error", err)
		return false
	}
	if err := scoring.SavePointer(t.cfg.ModelsDir, ptr); err != nil {
		t.logger.Warn("failed to normalize activation pointer", "error", err)
	}
	return true
}

// Smoke verifies the scoring path end to end: it ingests the two
// bundled reference samples, compares them through the service and
// checks the high-quality sample wins. Items are removed afterwards.
func Smoke(ctx context.Context, s *store.Store, svc *scoring.Service) error {
	items, err := smokeItems(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		for _, item := range items {
			_ = s.DeleteItem(ctx, item.ID)
		}
	}()

	result, err := svc.Compare(ctx, items[0].ID, items[1].ID)
	if err != nil {
		return fmt.Errorf("smoke compare failed: %w", err)
	}
	if result.Preference != 1 {
		return fmt.Errorf("smoke check failed: high-quality sample not preferred (preference=%d, a=%.4f, b=%.4f, provenance=%s)",
			result.Preference, result.AScore, result.BScore, result.Provenance)
	}
	return nil
}

func smokeItems(ctx context.Context, s *store.Store) ([]*types.RankItem, error) {
	samples := []struct {
		ref  string
		text string
	}{
		{"smoke-high", features.SampleHighQuality},
		{"smoke-low", features.SampleLowQuality},
	}

	var items []*types.RankItem
	for _, sample := range samples {
		item := &types.RankItem{
			Platform:  types.PlatformLinkedIn,
			Section:   features.SampleSection,
			SourceRef: sample.ref,
			Metrics:   features.Extract(sample.text, features.SampleSection),
		}
		if err := s.CreateItem(ctx, item); err != nil {
			for _, created := range items {
				_ = s.DeleteItem(ctx, created.ID)
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
