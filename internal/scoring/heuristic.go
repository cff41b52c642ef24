package scoring

import (
	"context"

	"github.com/optiprofile/ranker/pkg/types"
)

// Heuristic proxy weights. This formula is deliberately not the
// bootstrap quality score: it blends the stored metrics into three
// bounded proxies and stays stable as long as the metrics do.
const (
	heuristicClarityWeight = 0.3
	heuristicImpactWeight  = 0.4
	heuristicKeywordWeight = 0.3
)

// heuristicStrategy scores items from their stored metrics alone. It
// needs no embedding and never fails.
type heuristicStrategy struct{}

var _ Strategy = (*heuristicStrategy)(nil)

func (heuristicStrategy) Score(ctx context.Context, item *types.RankItem, _ []float32) (float64, types.Provenance, error) {
	return HeuristicScore(item), types.ProvenanceHeuristic, nil
}

// HeuristicScore computes the deterministic fallback score from an
// item's stored metrics. All metrics live in [0,1], so the result does
// too.
func HeuristicScore(item *types.RankItem) float64 {
	clarityProxy := 0.6*item.Metric("clarity") + 0.4*item.Metric("readability")
	impactProxy := 0.7*item.Metric("impact") + 0.3*item.Metric("relevance")
	keywordProxy := 0.5*item.Metric("keyword_density") + 0.5*item.Metric("completeness")

	return heuristicClarityWeight*clarityProxy +
		heuristicImpactWeight*impactProxy +
		heuristicKeywordWeight*keywordProxy
}
