// Package bootstrap seeds the dataset store from benchmark profile
// content: it ingests items with extracted metrics, optionally embeds
// them, and generates an initial set of heuristic-labeled pairs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/optiprofile/ranker/internal/embedding"
	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/types"
)

// Content is one piece of benchmark profile text to ingest.
type Content struct {
	Platform  types.Platform `json:"platform"`
	Section   string         `json:"section"`
	SourceRef string         `json:"sourceRef"`
	Text      string         `json:"text"`
}

// ContentSource supplies benchmark content for a platform.
type ContentSource interface {
	// Fetch returns the content to ingest. platform may be empty,
	// meaning all platforms the source knows about.
	Fetch(ctx context.Context, platform types.Platform) ([]Content, error)
}

// Quality weights for ordering bootstrap pairs. Intentionally distinct
// from the inference-time heuristic.
const (
	qualityClarityWeight      = 0.3
	qualityImpactWeight       = 0.3
	qualityRelevanceWeight    = 0.2
	qualityCompletenessWeight = 0.2
)

// Report summarizes one bootstrap run.
type Report struct {
	ItemsCreated  int
	ItemsSkipped  int // duplicates by source ref
	ItemsEmbedded int
	PairsCreated  int
	PairsSkipped  int // self-pairs and equal-quality pairs
}

// Bootstrapper ingests benchmark content into the store.
type Bootstrapper struct {
	store    *store.Store
	source   ContentSource
	embedder *embedding.CachedProvider // optional
	logger   *slog.Logger
}

// New creates a bootstrapper. embedder may be nil, in which case items
// are created without embeddings.
func New(s *store.Store, source ContentSource, embedder *embedding.CachedProvider, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{store: s, source: source, embedder: embedder, logger: logger}
}

// Run ingests all content for the platform and pairs up the newly
// created items. Duplicate source refs are skipped, not errors.
func (b *Bootstrapper) Run(ctx context.Context, platform types.Platform) (*Report, error) {
	contents, err := b.source.Fetch(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch benchmark content: %w", err)
	}

	report := &Report{}
	var created []*types.RankItem

	for _, c := range contents {
		if platform != "" && c.Platform != platform {
			continue
		}
		if _, err := b.store.FindItemBySourceRef(ctx, c.Platform, c.SourceRef); err == nil {
			report.ItemsSkipped++
			b.logger.Debug("skipping duplicate content", "sourceRef", c.SourceRef)
			continue
		} else if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}

		item := &types.RankItem{
			Platform:  c.Platform,
			Section:   c.Section,
			SourceRef: c.SourceRef,
			Metrics:   features.Extract(c.Text, c.Section),
		}
		if err := b.store.CreateItem(ctx, item); err != nil {
			return nil, err
		}
		report.ItemsCreated++

		if b.embedder != nil {
			if err := b.embed(ctx, item, c.Text); err != nil {
				// Embedding is best-effort during bootstrap.
				b.logger.Warn("failed to embed content", "sourceRef", c.SourceRef, "error", err)
			} else {
				report.ItemsEmbedded++
			}
		}
		created = append(created, item)
	}

	b.generatePairs(ctx, created, report)

	b.logger.Info("bootstrap complete",
		"platform", string(platform),
		"items", report.ItemsCreated,
		"duplicates", report.ItemsSkipped,
		"embedded", report.ItemsEmbedded,
		"pairs", report.PairsCreated)
	return report, nil
}

// embed computes, persists and links the embedding for one item.
func (b *Bootstrapper) embed(ctx context.Context, item *types.RankItem, text string) error {
	res, err := b.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return err
	}
	rec := &types.EmbeddingRecord{
		TextHash:   types.HashText(text),
		Model:      res.Model,
		Dimensions: res.Dimensions,
		Vector:     res.Embeddings[0],
	}
	if err := b.store.SaveEmbedding(ctx, rec); err != nil {
		return err
	}
	return b.store.SetItemEmbedding(ctx, item.ID, rec.TextHash)
}

// generatePairs labels each item against its wrap-around neighbor. The
// higher quality scorer is always oriented as A with label 1, so every
// generated pair reads "A preferred"; consumers are expected to know
// the benchmark source carries that skew.
func (b *Bootstrapper) generatePairs(ctx context.Context, items []*types.RankItem, report *Report) {
	n := len(items)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		a, bItem := items[i], items[(i+1)%n]
		if a.ID == bItem.ID {
			report.PairsSkipped++
			continue
		}
		qa, qb := qualityScore(a), qualityScore(bItem)
		if qa == qb {
			report.PairsSkipped++
			continue
		}
		if qb > qa {
			a, bItem = bItem, a
		}
		pair := &types.RankPair{
			AItemID: a.ID,
			BItemID: bItem.ID,
			Label:   types.LabelAPreferred,
			Source:  types.PairSourceBenchmark,
		}
		if err := b.store.CreatePair(ctx, pair); err != nil {
			report.PairsSkipped++
			b.logger.Warn("failed to create bootstrap pair", "error", err)
			continue
		}
		report.PairsCreated++
	}
}

// qualityScore orders bootstrap items for pair labeling.
func qualityScore(item *types.RankItem) float64 {
	return qualityClarityWeight*item.Metric("clarity") +
		qualityImpactWeight*item.Metric("impact") +
		qualityRelevanceWeight*item.Metric("relevance") +
		qualityCompletenessWeight*item.Metric("completeness")
}
