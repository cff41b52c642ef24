package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/optiprofile/ranker/internal/metrics"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/provider"
	"github.com/optiprofile/ranker/pkg/types"
)

// RuntimeLoader obtains the external scorer runtime used to evaluate
// trained models. The plugin host provides the production
// implementation; tests provide fakes.
type RuntimeLoader interface {
	LoadRuntime(ctx context.Context) (provider.ScorerRuntime, error)
}

// Status reports the service's current mode.
type Status struct {
	ModelActive  bool             `json:"modelActive"`
	ModelVersion string           `json:"modelVersion,omitempty"`
	ModelPath    string           `json:"modelPath,omitempty"`
	Provenance   types.Provenance `json:"provenance"`
}

// Service scores and compares rank items.
type Service struct {
	store     *store.Store
	modelsDir string
	loader    RuntimeLoader
	logger    *slog.Logger

	mu       sync.RWMutex
	strategy Strategy
	runtime  provider.ScorerRuntime
	meta     *types.ModelMetadata
	ptr      *types.ActiveModelPointer
}

// NewService creates an uninitialized scoring service. loader may be
// nil, which forces heuristic-only mode.
func NewService(s *store.Store, modelsDir string, loader RuntimeLoader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     s,
		modelsDir: modelsDir,
		loader:    loader,
		logger:    logger,
		strategy:  heuristicStrategy{},
	}
}

// Initialize selects the scoring strategy. A missing or broken model
// setup is never an error: the service degrades to heuristic-only mode
// and logs why.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()

	ptr, err := LoadPointer(s.modelsDir)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			s.logger.Info("no active model, using heuristic scoring")
		} else {
			s.logger.Warn("unreadable model pointer, using heuristic scoring", "error", err)
		}
		return nil
	}

	meta, err := LoadMetadata(s.modelsDir, ptr)
	if err != nil {
		s.logger.Warn("unreadable model metadata, using heuristic scoring", "error", err)
		return nil
	}

	if s.loader == nil {
		s.logger.Warn("no scorer runtime configured, using heuristic scoring")
		return nil
	}
	runtime, err := s.loader.LoadRuntime(ctx)
	if err != nil {
		s.logger.Warn("scorer runtime unavailable, using heuristic scoring", "error", err)
		return nil
	}
	modelPath := filepath.Join(s.modelsDir, ptr.ActiveModel)
	if err := runtime.Load(ctx, modelPath); err != nil {
		s.logger.Warn("failed to load model, using heuristic scoring", "model", modelPath, "error", err)
		runtime.Close()
		return nil
	}

	s.runtime = runtime
	s.meta = meta
	s.ptr = ptr
	s.strategy = withFallback(newModelStrategy(runtime, meta.EmbeddingDim), heuristicStrategy{}, s.logger)
	s.logger.Info("model active", "model", ptr.ActiveModel, "version", meta.Version,
		"embeddingDim", meta.EmbeddingDim, "metricsDim", meta.MetricsDim)
	return nil
}

// ScoreItem scores one stored item.
func (s *Service) ScoreItem(ctx context.Context, itemID string) (*types.ScoreResult, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	score, prov, err := s.scoreOne(ctx, item)
	if err != nil {
		return nil, err
	}
	return &types.ScoreResult{Score: score, Provenance: prov}, nil
}

// Compare scores two items independently and reports which is
// preferred. If the two sides end up scored by different paths, both
// are re-scored with the heuristic so the comparison is apples to
// apples.
func (s *Service) Compare(ctx context.Context, aID, bID string) (*types.CompareResult, error) {
	if aID == bID {
		return nil, fmt.Errorf("%w: cannot compare an item with itself", types.ErrValidation)
	}
	a, err := s.store.GetItem(ctx, aID)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetItem(ctx, bID)
	if err != nil {
		return nil, err
	}

	aScore, aProv, err := s.scoreOne(ctx, a)
	if err != nil {
		return nil, err
	}
	bScore, bProv, err := s.scoreOne(ctx, b)
	if err != nil {
		return nil, err
	}

	prov := aProv
	if aProv != bProv {
		aScore = HeuristicScore(a)
		bScore = HeuristicScore(b)
		prov = types.ProvenanceHeuristic
	}

	diff := aScore - bScore
	result := &types.CompareResult{
		AScore:     aScore,
		BScore:     bScore,
		Preference: sign(diff),
		Confidence: clamp01(abs(diff)),
		Provenance: prov,
	}
	return result, nil
}

// Status reports whether a trained model is active. Informational only.
func (s *Service) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Status{Provenance: types.ProvenanceHeuristic}
	if s.meta != nil {
		st.ModelActive = true
		st.ModelVersion = s.meta.Version
		st.ModelPath = filepath.Join(s.modelsDir, s.ptr.ActiveModel)
		st.Provenance = types.ProvenanceRanker
	}
	return st
}

// Close releases the scorer runtime, if any.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	return nil
}

func (s *Service) teardownLocked() {
	if s.runtime != nil {
		s.runtime.Close()
	}
	s.runtime = nil
	s.meta = nil
	s.ptr = nil
	s.strategy = heuristicStrategy{}
}

func (s *Service) scoreOne(ctx context.Context, item *types.RankItem) (float64, types.Provenance, error) {
	s.mu.RLock()
	strategy := s.strategy
	needsEmbedding := s.meta != nil
	s.mu.RUnlock()

	var embedding []float32
	if needsEmbedding && item.EmbeddingID != "" {
		rec, err := s.store.GetEmbedding(ctx, item.EmbeddingID)
		if err == nil {
			embedding = rec.Vector
		} else {
			s.logger.Warn("embedding lookup failed, scoring with zero vector",
				"item", item.ID, "error", err)
		}
	}

	score, prov, err := strategy.Score(ctx, item, embedding)
	if err != nil {
		return 0, prov, err
	}
	metrics.ScoreRequests.WithLabelValues(string(prov)).Inc()
	return score, prov, nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
