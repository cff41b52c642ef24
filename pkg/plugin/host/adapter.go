package host

import (
	"context"

	"github.com/optiprofile/ranker/pkg/plugin/shared"
	"github.com/optiprofile/ranker/pkg/provider"
)

// ScorerAdapter adapts a plugin ScorerProvider to the
// provider.ScorerRuntime interface.
type ScorerAdapter struct {
	plugin shared.ScorerProvider
}

// NewScorerAdapter creates a new scorer adapter.
func NewScorerAdapter(p shared.ScorerProvider) *ScorerAdapter {
	return &ScorerAdapter{plugin: p}
}

// Name returns the runtime name.
func (a *ScorerAdapter) Name() string {
	return a.plugin.Name()
}

// Load loads the model artifact at the given path.
func (a *ScorerAdapter) Load(ctx context.Context, modelPath string) error {
	// Check context before calling plugin
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return a.plugin.Load(modelPath)
}

// Score evaluates the loaded model on one input vector.
func (a *ScorerAdapter) Score(ctx context.Context, input []float32) (float32, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return a.plugin.Score(input)
}

// Close closes the runtime.
func (a *ScorerAdapter) Close() error {
	return a.plugin.Close()
}

// Ensure ScorerAdapter implements provider.ScorerRuntime
var _ provider.ScorerRuntime = (*ScorerAdapter)(nil)
