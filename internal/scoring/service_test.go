package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/optiprofile/ranker/internal/features"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/provider"
	"github.com/optiprofile/ranker/pkg/types"
)

// fakeRuntime scores inputs by summing them. failAfter > 0 makes every
// call from that ordinal on fail.
type fakeRuntime struct {
	loadErr   error
	failAfter int
	calls     int
	lastInput []float32
	closed    bool
}

func (f *fakeRuntime) Name() string { return "fake" }

func (f *fakeRuntime) Load(ctx context.Context, modelPath string) error {
	return f.loadErr
}

func (f *fakeRuntime) Score(ctx context.Context, input []float32) (float32, error) {
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return 0, fmt.Errorf("runtime exploded")
	}
	f.lastInput = input
	var sum float32
	for _, v := range input {
		sum += v
	}
	return sum, nil
}

func (f *fakeRuntime) Close() error {
	f.closed = true
	return nil
}

type fakeLoader struct {
	runtime provider.ScorerRuntime
	err     error
}

func (f *fakeLoader) LoadRuntime(ctx context.Context) (provider.ScorerRuntime, error) {
	return f.runtime, f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ranker.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createItem(t *testing.T, s *store.Store, metrics map[string]float64) *types.RankItem {
	t.Helper()
	item := &types.RankItem{
		Platform:  types.PlatformLinkedIn,
		Section:   "summary",
		SourceRef: fmt.Sprintf("item-%p", &metrics),
		Metrics:   metrics,
	}
	if err := s.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	return item
}

// writeModelFixture lays out a models directory with an activated model.
func writeModelFixture(t *testing.T, embeddingDim int) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "ranker.onnx"), []byte("model bytes"), 0644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	meta := fmt.Sprintf(`{
		"version": "3",
		"embeddingDim": %d,
		"metricsDim": %d,
		"featureNames": ["clarity","impact","relevance","readability","keyword_density","completeness"],
		"datasetHash": "abc",
		"onnxOpSet": 13
	}`, embeddingDim, features.Dim())
	if err := os.WriteFile(filepath.Join(dir, "ranker_metadata.json"), []byte(meta), 0644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	err := SavePointer(dir, &types.ActiveModelPointer{
		ActiveModel: "ranker.onnx",
		Metadata:    "ranker_metadata.json",
	})
	if err != nil {
		t.Fatalf("SavePointer() error = %v", err)
	}
	return dir
}

func TestNoActiveModelIsHeuristicMode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	svc := NewService(s, t.TempDir(), nil, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	status := svc.Status()
	if status.ModelActive {
		t.Error("Status().ModelActive = true, want false")
	}
	if status.Provenance != types.ProvenanceHeuristic {
		t.Errorf("Status().Provenance = %q, want heuristic", status.Provenance)
	}

	item := createItem(t, s, map[string]float64{"clarity": 0.5})
	result, err := svc.ScoreItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ScoreItem() error = %v", err)
	}
	if result.Provenance != types.ProvenanceHeuristic {
		t.Errorf("provenance = %q, want heuristic", result.Provenance)
	}
}

func TestHeuristicCompareScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createItem(t, s, map[string]float64{"clarity": 0.9, "impact": 0.85, "relevance": 0.8, "completeness": 0.8})
	b := createItem(t, s, map[string]float64{"clarity": 0.5, "impact": 0.4, "relevance": 0.5, "completeness": 0.4})

	svc := NewService(s, t.TempDir(), nil, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	result, err := svc.Compare(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Preference != 1 {
		t.Errorf("preference = %d, want 1", result.Preference)
	}
	if result.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", result.Confidence)
	}
	if result.Provenance != types.ProvenanceHeuristic {
		t.Errorf("provenance = %q, want heuristic", result.Provenance)
	}
	if math.Abs(result.AScore-0.616) > 1e-9 {
		t.Errorf("aScore = %v, want 0.616", result.AScore)
	}
	if math.Abs(result.BScore-0.322) > 1e-9 {
		t.Errorf("bScore = %v, want 0.322", result.BScore)
	}
}

func TestCompareSelfRejected(t *testing.T) {
	s := newTestStore(t)
	item := createItem(t, s, map[string]float64{"clarity": 0.5})

	svc := NewService(s, t.TempDir(), nil, nil)
	if _, err := svc.Compare(context.Background(), item.ID, item.ID); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Compare(self) error = %v, want ErrValidation", err)
	}
}

func TestModelModeScoresWithRuntime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const embeddingDim = 4

	runtime := &fakeRuntime{}
	svc := NewService(s, writeModelFixture(t, embeddingDim), &fakeLoader{runtime: runtime}, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	status := svc.Status()
	if !status.ModelActive {
		t.Fatal("Status().ModelActive = false, want true")
	}
	if status.ModelVersion != "3" {
		t.Errorf("ModelVersion = %q, want 3", status.ModelVersion)
	}
	if status.Provenance != types.ProvenanceRanker {
		t.Errorf("Status().Provenance = %q, want ranker", status.Provenance)
	}

	item := createItem(t, s, map[string]float64{"clarity": 1, "impact": 1})
	result, err := svc.ScoreItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ScoreItem() error = %v", err)
	}
	if result.Provenance != types.ProvenanceRanker {
		t.Errorf("provenance = %q, want ranker", result.Provenance)
	}

	// No stored embedding: input must be a zero vector plus the ordered
	// metrics, so the sum-scoring runtime sees exactly clarity+impact.
	wantLen := embeddingDim + features.Dim()
	if len(runtime.lastInput) != wantLen {
		t.Fatalf("input length = %d, want %d", len(runtime.lastInput), wantLen)
	}
	for i := 0; i < embeddingDim; i++ {
		if runtime.lastInput[i] != 0 {
			t.Errorf("input[%d] = %v, want 0 (zero-vector embedding)", i, runtime.lastInput[i])
		}
	}
	if math.Abs(result.Score-2) > 1e-6 {
		t.Errorf("score = %v, want 2", result.Score)
	}
}

func TestModelModeUsesStoredEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const embeddingDim = 4

	runtime := &fakeRuntime{}
	svc := NewService(s, writeModelFixture(t, embeddingDim), &fakeLoader{runtime: runtime}, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	item := createItem(t, s, map[string]float64{})
	hash := types.HashText("content")
	err := s.SaveEmbedding(ctx, &types.EmbeddingRecord{
		TextHash: hash,
		Model:    "stub",
		Vector:   []float32{0.25, 0.25, 0.25, 0.25},
	})
	if err != nil {
		t.Fatalf("SaveEmbedding() error = %v", err)
	}
	if err := s.SetItemEmbedding(ctx, item.ID, hash); err != nil {
		t.Fatalf("SetItemEmbedding() error = %v", err)
	}

	result, err := svc.ScoreItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ScoreItem() error = %v", err)
	}
	if math.Abs(result.Score-1) > 1e-6 {
		t.Errorf("score = %v, want 1 (sum of embedding)", result.Score)
	}
	if runtime.lastInput[0] != 0.25 {
		t.Errorf("input[0] = %v, want stored embedding value 0.25", runtime.lastInput[0])
	}
}

func TestModelFailureFallsBackPerCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runtime := &fakeRuntime{failAfter: 1}
	svc := NewService(s, writeModelFixture(t, 4), &fakeLoader{runtime: runtime}, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	item := createItem(t, s, map[string]float64{"clarity": 0.5})
	result, err := svc.ScoreItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("ScoreItem() error = %v", err)
	}
	if result.Provenance != types.ProvenanceHeuristic {
		t.Errorf("provenance = %q, want heuristic after runtime failure", result.Provenance)
	}
	if want := HeuristicScore(item); result.Score != want {
		t.Errorf("score = %v, want heuristic %v", result.Score, want)
	}

	// The service itself stays in model mode.
	if !svc.Status().ModelActive {
		t.Error("Status().ModelActive = false after per-call fallback, want true")
	}
}

func TestCompareNeverMixesProvenance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// First call succeeds, second (and later) fail: without the
	// consistency rule Compare would mix a model score with a
	// heuristic one.
	runtime := &fakeRuntime{failAfter: 2}
	svc := NewService(s, writeModelFixture(t, 4), &fakeLoader{runtime: runtime}, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	a := createItem(t, s, map[string]float64{"clarity": 0.9, "impact": 0.85, "relevance": 0.8, "completeness": 0.8})
	b := createItem(t, s, map[string]float64{"clarity": 0.5, "impact": 0.4, "relevance": 0.5, "completeness": 0.4})

	result, err := svc.Compare(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if result.Provenance != types.ProvenanceHeuristic {
		t.Errorf("provenance = %q, want heuristic for both sides", result.Provenance)
	}
	if want := HeuristicScore(a); result.AScore != want {
		t.Errorf("aScore = %v, want heuristic %v", result.AScore, want)
	}
	if want := HeuristicScore(b); result.BScore != want {
		t.Errorf("bScore = %v, want heuristic %v", result.BScore, want)
	}
	if result.Preference != 1 {
		t.Errorf("preference = %d, want 1", result.Preference)
	}
}

func TestInitializeDegradesOnBrokenSetup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T) (string, RuntimeLoader)
	}{
		{
			"pointer without metadata file",
			func(t *testing.T) (string, RuntimeLoader) {
				dir := t.TempDir()
				err := SavePointer(dir, &types.ActiveModelPointer{ActiveModel: "m.onnx", Metadata: "missing.json"})
				if err != nil {
					t.Fatalf("SavePointer() error = %v", err)
				}
				return dir, &fakeLoader{runtime: &fakeRuntime{}}
			},
		},
		{
			"runtime loader failure",
			func(t *testing.T) (string, RuntimeLoader) {
				return writeModelFixture(t, 4), &fakeLoader{err: fmt.Errorf("no plugin")}
			},
		},
		{
			"model load failure",
			func(t *testing.T) (string, RuntimeLoader) {
				return writeModelFixture(t, 4), &fakeLoader{runtime: &fakeRuntime{loadErr: fmt.Errorf("corrupt model")}}
			},
		},
		{
			"corrupt pointer file",
			func(t *testing.T) (string, RuntimeLoader) {
				dir := t.TempDir()
				if err := os.WriteFile(filepath.Join(dir, PointerFileName), []byte("{not json"), 0644); err != nil {
					t.Fatalf("write pointer: %v", err)
				}
				return dir, &fakeLoader{runtime: &fakeRuntime{}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, loader := tt.setup(t)
			svc := NewService(s, dir, loader, nil)
			if err := svc.Initialize(ctx); err != nil {
				t.Fatalf("Initialize() error = %v, want soft degradation", err)
			}
			defer svc.Close()
			if svc.Status().ModelActive {
				t.Error("Status().ModelActive = true, want false")
			}
		})
	}
}

func TestPointerRoundTrip(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadPointer(dir); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("LoadPointer(empty) error = %v, want ErrNotFound", err)
	}

	ptr := &types.ActiveModelPointer{ActiveModel: "ranker.onnx", Metadata: "ranker_metadata.json"}
	if err := SavePointer(dir, ptr); err != nil {
		t.Fatalf("SavePointer() error = %v", err)
	}

	got, err := LoadPointer(dir)
	if err != nil {
		t.Fatalf("LoadPointer() error = %v", err)
	}
	if got.ActiveModel != ptr.ActiveModel || got.Metadata != ptr.Metadata {
		t.Errorf("LoadPointer() = %+v, want %+v", got, ptr)
	}

	if err := ClearPointer(dir); err != nil {
		t.Fatalf("ClearPointer() error = %v", err)
	}
	if _, err := LoadPointer(dir); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("after clear: error = %v, want ErrNotFound", err)
	}
	// Clearing twice is fine.
	if err := ClearPointer(dir); err != nil {
		t.Errorf("second ClearPointer() error = %v", err)
	}
}

func TestHeuristicScoreBounds(t *testing.T) {
	full := map[string]float64{}
	for _, name := range features.Names() {
		full[name] = 1
	}
	if got := HeuristicScore(&types.RankItem{Metrics: full}); math.Abs(got-1) > 1e-9 {
		t.Errorf("all-ones score = %v, want 1", got)
	}
	if got := HeuristicScore(&types.RankItem{}); got != 0 {
		t.Errorf("empty metrics score = %v, want 0", got)
	}
}
