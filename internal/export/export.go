// Package export writes the training dataset consumed by the external
// trainer: one JSON line per labeled pair plus a metadata manifest.
package export

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/metrics"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/types"
)

const (
	// DatasetVersion is stamped into metadata.json so the trainer can
	// reject incompatible exports.
	DatasetVersion = "1"

	DatasetFileName  = "dataset.jsonl"
	MetadataFileName = "metadata.json"

	// DefaultEmbeddingDim matches the trainer's default input width and
	// is used when no embedding has been stored yet.
	DefaultEmbeddingDim = 1536
)

// Options configure one export run.
type Options struct {
	// OutDir receives dataset.jsonl and metadata.json.
	OutDir string
	// Source restricts the export to pairs from one source; empty
	// exports everything.
	Source types.PairSource
	// EmbeddingDim overrides the manifest embedding width. When 0 the
	// width of the first stored embedding is used, falling back to
	// DefaultEmbeddingDim.
	EmbeddingDim int
}

// Exporter streams the dataset out of the store.
type Exporter struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an exporter over the given store.
func New(s *store.Store, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: s, logger: logger}
}

// Export writes dataset.jsonl and metadata.json into opts.OutDir in a
// single streaming pass over the pairs. Pairs whose items are missing
// are counted as skipped, never silently dropped from the numbers.
func (e *Exporter) Export(ctx context.Context, opts Options) (*types.DatasetMetadata, error) {
	if opts.OutDir == "" {
		return nil, fmt.Errorf("%w: output directory is required", types.ErrValidation)
	}
	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	pairs, err := e.store.ListPairs(ctx, opts.Source, 0)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(filepath.Join(opts.OutDir, DatasetFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	hasher := sha256.New()
	labelDist := make(map[string]int)
	written := 0
	skipped := 0

	for _, pair := range pairs {
		a, err := e.store.GetItem(ctx, pair.AItemID)
		if err == nil {
			var b *types.RankItem
			b, err = e.store.GetItem(ctx, pair.BItemID)
			if err == nil {
				row := buildRow(pair, a, b)
				line, merr := json.Marshal(row)
				if merr != nil {
					return nil, fmt.Errorf("failed to marshal pair %s: %w", pair.ID, merr)
				}
				if _, werr := w.Write(append(line, '\n')); werr != nil {
					return nil, fmt.Errorf("failed to write dataset: %w", werr)
				}
				// The dataset hash covers identity triples only, so it is
				// stable across metric or embedding recomputation.
				fmt.Fprintf(hasher, "%s|%s|%d\n", pair.AItemID, pair.BItemID, pair.Label)
				labelDist[strconv.Itoa(pair.Label)]++
				written++
				continue
			}
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		skipped++
		metrics.ExportSkippedPairs.Inc()
		e.logger.Warn("skipping pair with missing item", "pair", pair.ID)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush dataset: %w", err)
	}

	itemCount, err := e.store.CountItems(ctx, "")
	if err != nil {
		return nil, err
	}

	meta := &types.DatasetMetadata{
		Version:           DatasetVersion,
		FeatureNames:      features.Names(),
		EmbeddingDim:      e.embeddingDim(ctx, opts),
		MetricsDim:        features.Dim(),
		ItemCount:         itemCount,
		PairCount:         written,
		SkippedPairs:      skipped,
		DatasetHash:       hex.EncodeToString(hasher.Sum(nil)),
		CreatedAt:         time.Now().UTC(),
		LabelDistribution: labelDist,
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.OutDir, MetadataFileName), metaJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	e.logger.Info("dataset exported",
		"pairs", written, "skipped", skipped, "hash", meta.DatasetHash[:12])
	return meta, nil
}

func buildRow(pair *types.RankPair, a, b *types.RankItem) *types.DatasetRow {
	row := &types.DatasetRow{
		AMetrics:   a.Metrics,
		BMetrics:   b.Metrics,
		Label:      pair.Label,
		ReasonTags: pair.ReasonTags,
		Source:     string(pair.Source),
	}
	if row.ReasonTags == nil {
		row.ReasonTags = []string{}
	}
	if a.EmbeddingID != "" {
		id := a.EmbeddingID
		row.AEmbeddingID = &id
	}
	if b.EmbeddingID != "" {
		id := b.EmbeddingID
		row.BEmbeddingID = &id
	}
	return row
}

func (e *Exporter) embeddingDim(ctx context.Context, opts Options) int {
	if opts.EmbeddingDim > 0 {
		return opts.EmbeddingDim
	}
	if dim, ok := e.storedDim(ctx); ok {
		return dim
	}
	return DefaultEmbeddingDim
}

// storedDim peeks at any persisted embedding to learn the vector width.
func (e *Exporter) storedDim(ctx context.Context) (int, bool) {
	items, err := e.store.ListItems(ctx, "", 0)
	if err != nil {
		return 0, false
	}
	for _, item := range items {
		if item.EmbeddingID == "" {
			continue
		}
		rec, err := e.store.GetEmbedding(ctx, item.EmbeddingID)
		if err != nil {
			continue
		}
		return rec.Dimensions, true
	}
	return 0, false
}
