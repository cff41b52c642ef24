package shared

import (
	"net/rpc"
)

// ScorerRPCClient is the RPC client for scorer runtimes.
type ScorerRPCClient struct {
	client *rpc.Client
}

// Name returns the runtime name.
func (c *ScorerRPCClient) Name() string {
	var resp string
	err := c.client.Call("Plugin.Name", new(interface{}), &resp)
	if err != nil {
		return ""
	}
	return resp
}

// LoadArgs are the arguments for the Load RPC call.
type LoadArgs struct {
	ModelPath string
}

// Load loads a trained model from the given path.
func (c *ScorerRPCClient) Load(modelPath string) error {
	var resp string
	err := c.client.Call("Plugin.Load", &LoadArgs{ModelPath: modelPath}, &resp)
	if err != nil {
		return err
	}
	if resp != "" {
		return &PluginError{Message: resp}
	}
	return nil
}

// ScoreArgs are the arguments for the Score RPC call.
type ScoreArgs struct {
	Input []float32
}

// ScoreReply is the reply for the Score RPC call.
type ScoreReply struct {
	Score float32
	Error string
}

// Score evaluates the loaded model on one input vector.
func (c *ScorerRPCClient) Score(input []float32) (float32, error) {
	var resp ScoreReply
	err := c.client.Call("Plugin.Score", &ScoreArgs{Input: input}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, &PluginError{Message: resp.Error}
	}
	return resp.Score, nil
}

// Close closes the runtime.
func (c *ScorerRPCClient) Close() error {
	var resp string
	err := c.client.Call("Plugin.Close", new(interface{}), &resp)
	if err != nil {
		return err
	}
	if resp != "" {
		return &PluginError{Message: resp}
	}
	return nil
}

// ScorerRPCServer is the RPC server for scorer runtimes.
type ScorerRPCServer struct {
	Impl ScorerProvider
}

// Name returns the runtime name.
func (s *ScorerRPCServer) Name(args interface{}, resp *string) error {
	*resp = s.Impl.Name()
	return nil
}

// Load loads a trained model from the given path.
func (s *ScorerRPCServer) Load(args *LoadArgs, resp *string) error {
	if err := s.Impl.Load(args.ModelPath); err != nil {
		*resp = err.Error()
	}
	return nil
}

// Score evaluates the loaded model on one input vector.
func (s *ScorerRPCServer) Score(args *ScoreArgs, resp *ScoreReply) error {
	score, err := s.Impl.Score(args.Input)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.Score = score
	return nil
}

// Close closes the runtime.
func (s *ScorerRPCServer) Close(args interface{}, resp *string) error {
	if err := s.Impl.Close(); err != nil {
		*resp = err.Error()
	}
	return nil
}

// PluginError represents an error from a plugin.
type PluginError struct {
	Message string
}

func (e *PluginError) Error() string {
	return e.Message
}
