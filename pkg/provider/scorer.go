package provider

import "context"

// ScorerRuntime evaluates a trained pairwise ranker model. The input
// vector is the item embedding followed by the ordered feature metrics;
// the output is an unbounded raw model score.
type ScorerRuntime interface {
	// Name returns the runtime name.
	Name() string

	// Load loads the model artifact at the given path.
	Load(ctx context.Context, modelPath string) error

	// Score evaluates the loaded model on one input vector.
	Score(ctx context.Context, input []float32) (float32, error)

	// Close releases the runtime.
	Close() error
}
