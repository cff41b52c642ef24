// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	ollamaEmbed "github.com/optiprofile/ranker/builtin/embedding/ollama"
	openaiEmbed "github.com/optiprofile/ranker/builtin/embedding/openai"
	stubEmbed "github.com/optiprofile/ranker/builtin/embedding/stub"
	"github.com/optiprofile/ranker/pkg/provider"
)

func init() {
	// Register embedding providers
	provider.RegisterEmbedding("ollama", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return ollamaEmbed.New(ollamaEmbed.Config{
			Model:     cfg.Model,
			Endpoint:  cfg.BaseURL,
			BatchSize: cfg.BatchSize,
		}), nil
	})

	provider.RegisterEmbedding("openai", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return openaiEmbed.New(openaiEmbed.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			BatchSize: cfg.BatchSize,
		}), nil
	})

	provider.RegisterEmbedding("stub", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return stubEmbed.New(stubEmbed.Config{}), nil
	})
}
