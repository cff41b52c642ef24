// Package shared defines shared interfaces and types for external plugins.
package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is a common handshake that is shared by plugin and host.
// Prevents plugins compiled with different versions from running.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "OPTIPROFILE_RANKER_PLUGIN",
	MagicCookieValue: "optiprofile-ranker-v1",
}

// PluginType identifies the type of plugin.
type PluginType string

const (
	PluginTypeScorer PluginType = "scorer"
)

// PluginMap is the map of plugins we can dispense.
var PluginMap = map[string]plugin.Plugin{
	string(PluginTypeScorer): &ScorerPlugin{},
}

// ScorerProvider is the interface that scorer runtime plugins must
// implement. A scorer loads one trained model file and evaluates it on
// flat input vectors (embedding followed by the ordered metrics).
type ScorerProvider interface {
	Name() string
	Load(modelPath string) error
	Score(input []float32) (float32, error)
	Close() error
}

// ScorerPlugin is the plugin.Plugin implementation for scorer runtimes.
type ScorerPlugin struct {
	Impl ScorerProvider
}

func (p *ScorerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ScorerRPCServer{Impl: p.Impl}, nil
}

func (p *ScorerPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ScorerRPCClient{client: c}, nil
}
