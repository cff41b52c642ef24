package scoring

import (
	"context"
	"log/slog"

	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/metrics"
	"github.com/optiprofile/ranker/pkg/provider"
	"github.com/optiprofile/ranker/pkg/types"
)

// Strategy scores one item. embedding may be nil when no embedding is
// stored for the item; strategies that need one substitute a zero
// vector. The returned provenance tags which path actually produced
// the score.
type Strategy interface {
	Score(ctx context.Context, item *types.RankItem, embedding []float32) (float64, types.Provenance, error)
}

// modelStrategy evaluates the trained model through a scorer runtime.
type modelStrategy struct {
	runtime      provider.ScorerRuntime
	embeddingDim int
}

var _ Strategy = (*modelStrategy)(nil)

func newModelStrategy(runtime provider.ScorerRuntime, embeddingDim int) *modelStrategy {
	return &modelStrategy{runtime: runtime, embeddingDim: embeddingDim}
}

func (s *modelStrategy) Score(ctx context.Context, item *types.RankItem, embedding []float32) (float64, types.Provenance, error) {
	input := s.buildInput(item, embedding)
	score, err := s.runtime.Score(ctx, input)
	if err != nil {
		return 0, types.ProvenanceRanker, err
	}
	return float64(score), types.ProvenanceRanker, nil
}

// buildInput lays out the model input: embedding first, then the
// metrics in canonical feature order. Items without an embedding get a
// zero vector of the model's embedding width.
func (s *modelStrategy) buildInput(item *types.RankItem, embedding []float32) []float32 {
	input := make([]float32, 0, s.embeddingDim+features.Dim())
	switch {
	case len(embedding) == s.embeddingDim:
		input = append(input, embedding...)
	default:
		input = append(input, make([]float32, s.embeddingDim)...)
	}
	return append(input, features.Ordered(item.Metrics)...)
}

// fallbackStrategy wraps the model strategy with a per-call heuristic
// fallback: a model failure degrades that single call, not the service
// mode.
type fallbackStrategy struct {
	model     Strategy
	heuristic Strategy
	logger    *slog.Logger
}

var _ Strategy = (*fallbackStrategy)(nil)

func withFallback(model, heuristic Strategy, logger *slog.Logger) *fallbackStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallbackStrategy{model: model, heuristic: heuristic, logger: logger}
}

func (s *fallbackStrategy) Score(ctx context.Context, item *types.RankItem, embedding []float32) (float64, types.Provenance, error) {
	score, prov, err := s.model.Score(ctx, item, embedding)
	if err == nil {
		return score, prov, nil
	}
	metrics.ModelFallbacks.Inc()
	s.logger.Warn("model scoring failed, falling back to heuristic", "item", item.ID, "error", err)
	return s.heuristic.Score(ctx, item, embedding)
}
