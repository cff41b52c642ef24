package export

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/types"
)

type fixture struct {
	store  *store.Store
	dbPath string
	items  []*types.RankItem
	pairs  []*types.RankPair
}

// newFixture seeds a store with n items and a chain of pairs
// item[i] vs item[i+1].
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ranker.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	fx := &fixture{store: s, dbPath: dbPath}
	for i := 0; i < n; i++ {
		item := &types.RankItem{
			Platform:  types.PlatformLinkedIn,
			Section:   "summary",
			SourceRef: "item-" + string(rune('a'+i)),
			Metrics:   map[string]float64{"clarity": 0.1 * float64(i+1), "impact": 0.5},
		}
		if err := s.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
		fx.items = append(fx.items, item)
	}
	for i := 0; i+1 < n; i++ {
		pair := &types.RankPair{
			AItemID: fx.items[i].ID,
			BItemID: fx.items[i+1].ID,
			Label:   types.LabelAPreferred,
			Source:  types.PairSourceBenchmark,
		}
		if err := s.CreatePair(ctx, pair); err != nil {
			t.Fatalf("CreatePair() error = %v", err)
		}
		fx.pairs = append(fx.pairs, pair)
	}
	return fx
}

// orphanItem deletes an item behind the store's back, with foreign keys
// disabled, leaving its pairs dangling.
func (fx *fixture) orphanItem(t *testing.T, id string) {
	t.Helper()
	db, err := sql.Open("sqlite3", fx.dbPath)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec("DELETE FROM rank_items WHERE id = ?", id); err != nil {
		t.Fatalf("orphan delete: %v", err)
	}
}

func TestExportSkipsOrphanedPairs(t *testing.T) {
	fx := newFixture(t, 5) // 5 items, 4 chained pairs
	fx.orphanItem(t, fx.items[4].ID)

	outDir := t.TempDir()
	meta, err := New(fx.store, nil).Export(context.Background(), Options{OutDir: outDir})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if meta.PairCount != 3 {
		t.Errorf("pairCount = %d, want 3", meta.PairCount)
	}
	if meta.SkippedPairs != 1 {
		t.Errorf("skippedPairs = %d, want 1", meta.SkippedPairs)
	}
	if meta.ItemCount != 4 {
		t.Errorf("itemCount = %d, want 4", meta.ItemCount)
	}

	sum := 0
	for _, n := range meta.LabelDistribution {
		sum += n
	}
	if sum != meta.PairCount {
		t.Errorf("label distribution sums to %d, want %d", sum, meta.PairCount)
	}

	f, err := os.Open(filepath.Join(outDir, DatasetFileName))
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row types.DatasetRow
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if row.Label != types.LabelAPreferred {
			t.Errorf("line %d: label = %d, want 1", lines, row.Label)
		}
		if row.AMetrics["impact"] != 0.5 {
			t.Errorf("line %d: a_metrics impact = %v, want 0.5", lines, row.AMetrics["impact"])
		}
		if row.AEmbeddingID != nil {
			t.Errorf("line %d: a_embedding_id = %v, want null", lines, *row.AEmbeddingID)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("dataset has %d lines, want 3", lines)
	}
}

func TestExportMetadataContract(t *testing.T) {
	fx := newFixture(t, 3)

	outDir := t.TempDir()
	meta, err := New(fx.store, nil).Export(context.Background(), Options{OutDir: outDir})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if meta.Version != DatasetVersion {
		t.Errorf("version = %q, want %q", meta.Version, DatasetVersion)
	}
	if meta.MetricsDim != features.Dim() {
		t.Errorf("metricsDim = %d, want %d", meta.MetricsDim, features.Dim())
	}
	if len(meta.FeatureNames) != features.Dim() {
		t.Errorf("len(featureNames) = %d, want %d", len(meta.FeatureNames), features.Dim())
	}
	if meta.EmbeddingDim != DefaultEmbeddingDim {
		t.Errorf("embeddingDim = %d, want %d", meta.EmbeddingDim, DefaultEmbeddingDim)
	}

	// The manifest on disk must round-trip.
	raw, err := os.ReadFile(filepath.Join(outDir, MetadataFileName))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var onDisk types.DatasetMetadata
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if onDisk.DatasetHash != meta.DatasetHash {
		t.Errorf("on-disk hash = %q, want %q", onDisk.DatasetHash, meta.DatasetHash)
	}
}

func TestDatasetHashStability(t *testing.T) {
	fx := newFixture(t, 3)
	ctx := context.Background()
	exporter := New(fx.store, nil)

	first, err := exporter.Export(ctx, Options{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := exporter.Export(ctx, Options{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if first.DatasetHash != second.DatasetHash {
		t.Errorf("hash changed between identical exports: %q vs %q", first.DatasetHash, second.DatasetHash)
	}

	// Adding a pair must change the hash.
	pair := &types.RankPair{
		AItemID: fx.items[2].ID,
		BItemID: fx.items[0].ID,
		Label:   types.LabelBPreferred,
		Source:  types.PairSourceUserChoice,
	}
	if err := fx.store.CreatePair(ctx, pair); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}
	third, err := exporter.Export(ctx, Options{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if third.DatasetHash == first.DatasetHash {
		t.Error("hash unchanged after adding a pair")
	}
}

func TestExportEmbeddingDim(t *testing.T) {
	fx := newFixture(t, 2)
	ctx := context.Background()

	hash := types.HashText("some text")
	err := fx.store.SaveEmbedding(ctx, &types.EmbeddingRecord{
		TextHash: hash,
		Model:    "stub",
		Vector:   make([]float32, 384),
	})
	if err != nil {
		t.Fatalf("SaveEmbedding() error = %v", err)
	}
	if err := fx.store.SetItemEmbedding(ctx, fx.items[0].ID, hash); err != nil {
		t.Fatalf("SetItemEmbedding() error = %v", err)
	}

	meta, err := New(fx.store, nil).Export(ctx, Options{OutDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if meta.EmbeddingDim != 384 {
		t.Errorf("embeddingDim = %d, want 384 from stored embedding", meta.EmbeddingDim)
	}

	meta, err = New(fx.store, nil).Export(ctx, Options{OutDir: t.TempDir(), EmbeddingDim: 1536})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if meta.EmbeddingDim != 1536 {
		t.Errorf("embeddingDim override = %d, want 1536", meta.EmbeddingDim)
	}
}
