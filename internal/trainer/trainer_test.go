package trainer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/optiprofile/ranker/internal/scoring"
	"github.com/optiprofile/ranker/internal/store"
	"github.com/optiprofile/ranker/pkg/types"
)

// fakeTrainerScript mimics the external trainer: it parses --output and
// writes the three artifacts, using the legacy "model" pointer key.
const fakeTrainerScript = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
	case "$1" in
		--output) out="$2"; shift 2 ;;
		*) shift ;;
	esac
done
mkdir -p "$out"
printf 'not a real model' > "$out/ranker.onnx"
cat > "$out/ranker_metadata.json" <<'EOF'
{
	"version": "1.0",
	"embeddingDim": 1536,
	"metricsDim": 6,
	"featureNames": ["clarity","impact","relevance","readability","keyword_density","completeness"],
	"datasetHash": "deadbeef",
	"trainMetrics": {"trainAccuracy": 0.95, "trainLoss": 0.1, "valAccuracy": 0.9, "valLoss": 0.2},
	"onnxOpSet": 13
}
EOF
cat > "$out/active_model.json" <<'EOF'
{"model": "ranker.onnx", "metadata": "ranker_metadata.json"}
EOF
`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ranker.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPairs(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	var items []*types.RankItem
	for _, ref := range []string{"a", "b"} {
		item := &types.RankItem{
			Platform:  types.PlatformLinkedIn,
			Section:   "summary",
			SourceRef: ref,
			Metrics:   map[string]float64{"clarity": 0.5},
		}
		if err := s.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem() error = %v", err)
		}
		items = append(items, item)
	}
	pair := &types.RankPair{
		AItemID: items[0].ID,
		BItemID: items[1].ID,
		Label:   types.LabelAPreferred,
		Source:  types.PairSourceBenchmark,
	}
	if err := s.CreatePair(ctx, pair); err != nil {
		t.Fatalf("CreatePair() error = %v", err)
	}
}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.sh")
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestTrainRecordsRunAndNormalizesPointer(t *testing.T) {
	s := newTestStore(t)
	seedPairs(t, s)
	ctx := context.Background()
	modelsDir := t.TempDir()

	tr, err := New(s, Config{
		PythonBin: "sh",
		Script:    writeScript(t, fakeTrainerScript),
		ModelsDir: modelsDir,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := tr.Train(ctx)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !result.Activated {
		t.Error("result.Activated = false, want true")
	}
	if result.Metadata.EmbeddingDim != 1536 {
		t.Errorf("metadata embeddingDim = %d, want 1536", result.Metadata.EmbeddingDim)
	}
	if result.Dataset.PairCount != 1 {
		t.Errorf("dataset pairCount = %d, want 1", result.Dataset.PairCount)
	}

	run, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if run.DatasetHash != result.Dataset.DatasetHash {
		t.Errorf("run hash = %q, want export hash %q", run.DatasetHash, result.Dataset.DatasetHash)
	}
	if run.TrainMetrics["valAccuracy"] != 0.9 {
		t.Errorf("run valAccuracy = %v, want 0.9", run.TrainMetrics["valAccuracy"])
	}

	// Pointer must be rewritten with the canonical key and stay loadable.
	raw, err := os.ReadFile(filepath.Join(modelsDir, scoring.PointerFileName))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if !strings.Contains(string(raw), `"activeModel"`) {
		t.Errorf("pointer not normalized: %s", raw)
	}
	ptr, err := scoring.LoadPointer(modelsDir)
	if err != nil {
		t.Fatalf("LoadPointer() error = %v", err)
	}
	if ptr.ActiveModel != "ranker.onnx" {
		t.Errorf("pointer activeModel = %q, want ranker.onnx", ptr.ActiveModel)
	}
}

func TestTrainRequiresPairs(t *testing.T) {
	s := newTestStore(t)

	tr, err := New(s, Config{
		PythonBin: "sh",
		Script:    writeScript(t, fakeTrainerScript),
		ModelsDir: t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := tr.Train(context.Background()); !errors.Is(err, types.ErrValidation) {
		t.Errorf("Train() error = %v, want ErrValidation", err)
	}
}

func TestTrainPropagatesProcessFailure(t *testing.T) {
	s := newTestStore(t)
	seedPairs(t, s)

	tr, err := New(s, Config{
		PythonBin: "sh",
		Script:    writeScript(t, "#!/bin/sh\nexit 3\n"),
		ModelsDir: t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := tr.Train(context.Background()); err == nil {
		t.Error("Train() error = nil, want process failure")
	}

	// No run may be recorded for a failed invocation.
	if _, err := s.LatestRun(context.Background()); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("LatestRun() error = %v, want ErrNotFound", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	s := newTestStore(t)

	if _, err := New(s, Config{ModelsDir: t.TempDir()}, nil); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("missing script: error = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(s, Config{Script: "train.py"}, nil); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("missing models dir: error = %v, want ErrInvalidConfig", err)
	}
}

func TestSmoke(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	svc := scoring.NewService(s, t.TempDir(), nil, nil)
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer svc.Close()

	if err := Smoke(ctx, s, svc); err != nil {
		t.Errorf("Smoke() error = %v", err)
	}

	// Smoke items are cleaned up.
	if n, _ := s.CountItems(ctx, ""); n != 0 {
		t.Errorf("store has %d leftover items after smoke, want 0", n)
	}
}
