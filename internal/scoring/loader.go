package scoring

import (
	"context"
	"fmt"

	"github.com/optiprofile/ranker/pkg/plugin/host"
	"github.com/optiprofile/ranker/pkg/plugin/shared"
	"github.com/optiprofile/ranker/pkg/provider"
)

// PluginLoader loads the scorer runtime from an external plugin binary
// through the plugin host.
type PluginLoader struct {
	Manager    *host.Manager
	PluginName string
}

var _ RuntimeLoader = (*PluginLoader)(nil)

// NewPluginLoader creates a loader for the named scorer plugin.
func NewPluginLoader(manager *host.Manager, pluginName string) *PluginLoader {
	return &PluginLoader{Manager: manager, PluginName: pluginName}
}

// LoadRuntime starts (or reuses) the scorer plugin process.
func (l *PluginLoader) LoadRuntime(ctx context.Context) (provider.ScorerRuntime, error) {
	if l.PluginName == "" {
		return nil, fmt.Errorf("no scorer plugin configured")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	loaded, err := l.Manager.LoadPlugin(l.PluginName, shared.PluginTypeScorer)
	if err != nil {
		return nil, err
	}
	return host.NewScorerAdapter(loaded.Scorer), nil
}
