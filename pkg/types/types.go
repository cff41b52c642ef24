// Package types contains shared data types used across the ranker project.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Platform identifies where a piece of profile content lives.
type Platform string

const (
	PlatformLinkedIn Platform = "linkedin"
	PlatformGitHub   Platform = "github"
	PlatformResume   Platform = "resume"
)

// ValidPlatform reports whether p is one of the known platforms.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformLinkedIn, PlatformGitHub, PlatformResume:
		return true
	}
	return false
}

// PairSource identifies how a labeled pair was produced.
type PairSource string

const (
	PairSourceBenchmark   PairSource = "benchmark"
	PairSourceUserChoice  PairSource = "user_choice"
	PairSourceBeforeAfter PairSource = "before_after"
	PairSourceHeuristic   PairSource = "heuristic"
)

// Pair labels. LabelAPreferred means item A is the better of the two.
const (
	LabelBPreferred = -1
	LabelEqual      = 0
	LabelAPreferred = 1
)

// ValidLabel reports whether label is in the allowed {-1, 0, 1} set.
func ValidLabel(label int) bool {
	return label == LabelBPreferred || label == LabelEqual || label == LabelAPreferred
}

// RankItem is one scoreable unit of profile content with precomputed
// feature metrics. Items are immutable after creation except for the
// embedding back-reference.
type RankItem struct {
	ID          string             `json:"id"`
	Platform    Platform           `json:"platform"`
	Section     string             `json:"section"`   // e.g. "headline", "readme"
	SourceRef   string             `json:"sourceRef"` // source text or reference, may be truncated
	EmbeddingID string             `json:"embeddingId,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Metric returns the named metric, defaulting to 0 for missing keys.
func (it *RankItem) Metric(name string) float64 {
	if it.Metrics == nil {
		return 0
	}
	return it.Metrics[name]
}

// RankPair is a labeled preference between two RankItems.
// Immutable once created.
type RankPair struct {
	ID         string     `json:"id"`
	AItemID    string     `json:"aItemId"`
	BItemID    string     `json:"bItemId"`
	Label      int        `json:"label"` // -1 = B preferred, 0 = equal, 1 = A preferred
	ReasonTags []string   `json:"reasonTags,omitempty"`
	Source     PairSource `json:"source"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// RankRun records one completed external training invocation.
type RankRun struct {
	ID           string             `json:"id"`
	ModelPath    string             `json:"modelPath"`
	MetadataPath string             `json:"metadataPath"`
	DatasetHash  string             `json:"datasetHash"`
	TrainMetrics map[string]float64 `json:"trainMetrics"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// EmbeddingRecord is one cached text embedding, keyed by content hash.
// Entries are never invalidated: changed text changes the key.
type EmbeddingRecord struct {
	TextHash   string    `json:"textHash"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Vector     []float32 `json:"vector"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HashText computes the content hash used to key embedding records.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ActiveModelPointer names the currently active trained model. It is
// persisted as active_model.json in the models directory and survives
// process restarts. Filenames are resolved relative to that directory.
type ActiveModelPointer struct {
	ActiveModel string `json:"activeModel"`
	Metadata    string `json:"metadata"`
}

// TrainMetrics are the headline numbers reported by the external trainer.
type TrainMetrics struct {
	ValAccuracy   float64 `json:"valAccuracy"`
	ValLoss       float64 `json:"valLoss"`
	TrainAccuracy float64 `json:"trainAccuracy"`
	TrainLoss     float64 `json:"trainLoss"`
}

// ModelMetadata is the metadata file written by the external trainer and
// consumed at inference-service initialization.
type ModelMetadata struct {
	Version      string       `json:"version"`
	EmbeddingDim int          `json:"embeddingDim"`
	MetricsDim   int          `json:"metricsDim"`
	FeatureNames []string     `json:"featureNames"`
	DatasetHash  string       `json:"datasetHash"`
	TrainMetrics TrainMetrics `json:"trainMetrics"`
	CreatedAt    string       `json:"createdAt"`
	ONNXOpSet    int          `json:"onnxOpSet"`
}

// Provenance tags which scoring path produced a result.
type Provenance string

const (
	ProvenanceRanker    Provenance = "ranker"    // trained model
	ProvenanceHeuristic Provenance = "heuristic" // deterministic fallback
)

// ScoreResult is the outcome of scoring a single item.
type ScoreResult struct {
	Score      float64    `json:"score"`
	Provenance Provenance `json:"provenance"`
}

// CompareResult is the outcome of comparing two items.
// Preference is sign(AScore - BScore); Confidence is |AScore - BScore|
// clamped to [0,1].
type CompareResult struct {
	AScore     float64    `json:"aScore"`
	BScore     float64    `json:"bScore"`
	Preference int        `json:"preference"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
}

// DatasetRow is one line of the exported dataset.jsonl file.
type DatasetRow struct {
	AMetrics     map[string]float64 `json:"a_metrics"`
	BMetrics     map[string]float64 `json:"b_metrics"`
	AEmbeddingID *string            `json:"a_embedding_id"`
	BEmbeddingID *string            `json:"b_embedding_id"`
	Label        int                `json:"label"`
	ReasonTags   []string           `json:"reason_tags"`
	Source       string             `json:"source"`
}

// DatasetMetadata is the metadata.json contract consumed by the external
// trainer alongside the exported dataset.
type DatasetMetadata struct {
	Version           string         `json:"version"`
	FeatureNames      []string       `json:"featureNames"`
	EmbeddingDim      int            `json:"embeddingDim"`
	MetricsDim        int            `json:"metricsDim"`
	ItemCount         int            `json:"itemCount"`
	PairCount         int            `json:"pairCount"`
	SkippedPairs      int            `json:"skippedPairs"`
	DatasetHash       string         `json:"datasetHash"`
	CreatedAt         time.Time      `json:"createdAt"`
	LabelDistribution map[string]int `json:"labelDistribution"`
}
